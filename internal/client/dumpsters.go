package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"binops/internal/model"
)

// ListDumpsters returns every dumpster visible to the token's user.
func (c *Client) ListDumpsters(ctx context.Context, token string) ([]model.Dumpster, error) {
	return c.listDumpsters(ctx, request{method: http.MethodGet, path: "/dumpsters", token: token})
}

// DumpstersByPostalCode returns the dumpsters in a postal code with their
// status on date.
func (c *Client) DumpstersByPostalCode(ctx context.Context, token string, date model.Date, postalCode int) ([]model.Dumpster, error) {
	q := url.Values{}
	q.Set("date", date.String())
	q.Set("postal_code", strconv.Itoa(postalCode))
	return c.listDumpsters(ctx, request{
		method: http.MethodGet,
		path:   "/dumpsters/status/postal_code?" + q.Encode(),
		token:  token,
	})
}

func (c *Client) listDumpsters(ctx context.Context, r request) ([]model.Dumpster, error) {
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	switch resp.code {
	case http.StatusOK:
	case http.StatusNoContent:
		return []model.Dumpster{}, nil
	default:
		return nil, c.statusError(r, resp)
	}

	var out []model.Dumpster
	if err := decode(r, resp, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Dumpster{}
	}
	return out, nil
}

// CreateDumpster registers d and returns it as stored by the backend.
func (c *Client) CreateDumpster(ctx context.Context, token string, d model.Dumpster) (model.Dumpster, error) {
	r := request{method: http.MethodPost, path: "/dumpsters", token: token, body: d}
	resp, err := c.do(ctx, r)
	if err != nil {
		return model.Dumpster{}, err
	}
	if resp.code != http.StatusOK && resp.code != http.StatusCreated {
		return model.Dumpster{}, c.statusError(r, resp)
	}

	var out model.Dumpster
	if err := decode(r, resp, &out); err != nil {
		return model.Dumpster{}, err
	}
	return out, nil
}

// UpdateFill reports a new fill level for a dumpster. The body is the bare
// JSON number. ErrNotFound means the id does not exist.
func (c *Client) UpdateFill(ctx context.Context, token string, id int64, currentFill int) error {
	r := request{
		method: http.MethodPut,
		path:   fmt.Sprintf("/dumpsters/%d/dump_info", id),
		token:  token,
		body:   currentFill,
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	switch resp.code {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("dumpster %d: %w", id, ErrNotFound)
	default:
		return c.statusError(r, resp)
	}
}

// DumpsterUsage returns the usage records of a dumpster between start and end,
// both inclusive.
func (c *Client) DumpsterUsage(ctx context.Context, token string, id int64, start, end model.Date) ([]model.UsageRecord, error) {
	q := url.Values{}
	q.Set("start_date", start.String())
	q.Set("end_date", end.String())
	r := request{
		method: http.MethodGet,
		path:   fmt.Sprintf("/dumpsters/%d/usage?%s", id, q.Encode()),
		token:  token,
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	switch resp.code {
	case http.StatusOK:
	case http.StatusNoContent:
		return []model.UsageRecord{}, nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("dumpster %d: %w", id, ErrNotFound)
	default:
		return nil, c.statusError(r, resp)
	}

	var out []model.UsageRecord
	if err := decode(r, resp, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.UsageRecord{}
	}
	return out, nil
}
