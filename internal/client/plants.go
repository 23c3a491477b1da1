package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"binops/internal/model"
)

// ListPlants returns all recycling plants.
func (c *Client) ListPlants(ctx context.Context, token string) ([]model.RecyclingPlant, error) {
	r := request{method: http.MethodGet, path: "/recyclingPlants", token: token}
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	switch resp.code {
	case http.StatusOK:
	case http.StatusNoContent:
		return []model.RecyclingPlant{}, nil
	default:
		return nil, c.statusError(r, resp)
	}

	var out []model.RecyclingPlant
	if err := decode(r, resp, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.RecyclingPlant{}
	}
	return out, nil
}

// PlantCapacity returns the capacity a plant has available on date. found is
// false when the plant does not exist.
func (c *Client) PlantCapacity(ctx context.Context, token, plantName string, date model.Date) (capacity int, found bool, err error) {
	q := url.Values{}
	q.Set("date", date.String())
	r := request{
		method: http.MethodGet,
		path:   "/recyclingPlants/" + url.PathEscape(plantName) + "/capacity?" + q.Encode(),
		token:  token,
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return 0, false, err
	}
	switch resp.code {
	case http.StatusOK:
	case http.StatusNotFound:
		return 0, false, nil
	default:
		return 0, false, c.statusError(r, resp)
	}

	if err := decode(r, resp, &capacity); err != nil {
		return 0, false, err
	}
	return capacity, true, nil
}

// AssignDumpsters routes the given dumpsters to a plant. A rejected
// assignment (unknown plant or dumpster, not enough capacity) is ErrBadRequest.
func (c *Client) AssignDumpsters(ctx context.Context, token, plantName string, dumpsterIDs []int64) error {
	r := request{
		method: http.MethodPost,
		path:   "/recyclingPlants/assignDumpster",
		token:  token,
		body:   model.AssignRequest{PlantName: plantName, DumpsterIDs: dumpsterIDs},
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	switch resp.code {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusBadRequest:
		if body := string(resp.body); body != "" {
			return fmt.Errorf("%w: %s", ErrBadRequest, body)
		}
		return ErrBadRequest
	default:
		return c.statusError(r, resp)
	}
}
