package client

import (
	"context"

	"github.com/ShayBox/VRC-BAN/internal/api"
	"github.com/ShayBox/VRC-BAN/internal/buildinfo"
)

func (c *Client) Info(ctx context.Context) (*buildinfo.Info, string, error) {
	var info buildinfo.Info
	correlation, err := c.get(ctx, c.url().
		setPath(api.AboutRoute).
		build(), &info)
	return &info, correlation, err
}

// Status returns the session state of the server and its last ingest cycle.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, string, error) {
	var status api.StatusResponse
	correlation, err := c.get(ctx, c.url().
		setPath(api.StatusRoute).
		build(), &status)
	return &status, correlation, err
}
