package clienttest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
)

// readAll drains the request body and puts it back so handlers can read it
// again.
func readAll(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
