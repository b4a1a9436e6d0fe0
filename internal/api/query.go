package api

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyQuery is returned for a blank query string.
var ErrEmptyQuery = errors.New("query is empty")

// Query asks a natural-language question about the analysed clips.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}

	var resp QueryResponse
	if err := c.post(ctx, "/api/query", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearDatabase removes every stored clip analysis and resets the server's
// progress counters.
func (c *Client) ClearDatabase(ctx context.Context) (*ClearDatabaseResponse, error) {
	var resp ClearDatabaseResponse
	if err := c.post(ctx, "/api/clear-database", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
