package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"binops/internal/model"
)

// Login exchanges credentials for a session token. Rejected credentials are
// reported as ErrUnauthorized whatever status the backend used.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	r := request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   model.Credentials{Email: email, Password: password},
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return "", err
	}
	switch resp.code {
	case http.StatusOK:
	case http.StatusForbidden, http.StatusNotFound, http.StatusBadRequest:
		return "", ErrUnauthorized
	default:
		return "", c.statusError(r, resp)
	}

	token := parseToken(resp.body)
	if token == "" {
		return "", errors.New("login succeeded but the server returned an empty token")
	}
	return token, nil
}

// parseToken accepts the token either as the raw body or as a JSON string.
func parseToken(body []byte) string {
	raw := strings.TrimSpace(string(body))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return raw
}

// Logout invalidates token on the server. Only 204 counts as success.
func (c *Client) Logout(ctx context.Context, token string) error {
	r := request{method: http.MethodDelete, path: "/auth/logout", token: token}
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	if resp.code != http.StatusNoContent {
		return c.statusError(r, resp)
	}
	return nil
}
