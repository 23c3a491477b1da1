package client

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the backend rejects the token or the
	// credentials (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized: invalid token or credentials")

	// ErrNotFound is returned for HTTP 404 on endpoints where absence is a
	// distinct outcome.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest is returned for HTTP 400.
	ErrBadRequest = errors.New("bad request")
)

// StatusError reports an HTTP status the client has no specific meaning for.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
	}
	return fmt.Sprintf("http %s %s: status %d", e.Method, e.Path, e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
