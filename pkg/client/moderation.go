package client

import (
	"context"

	"github.com/ShayBox/VRC-BAN/internal/api"
	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/service"
)

// Leaderboard fetches the leaderboard computed from source ("store" or "remote").
func (c *Client) Leaderboard(ctx context.Context, source string) (*core.Leaderboard, string, error) {
	ub := c.url().setPath(api.LeaderboardRoute)
	if source != "" {
		ub = ub.addQueryParam("source", source)
	}
	var board core.Leaderboard
	correlation, err := c.get(ctx, ub.build(), &board)
	return &board, correlation, err
}

type LogsOpts struct {
	Limit  uint
	Actor  string
	Target string
}

// Logs retrieves stored audit log entries, newest first.
func (c *Client) Logs(ctx context.Context, opts LogsOpts) ([]core.AuditLogEntry, string, error) {
	ub := c.url().setPath(api.LogsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	if opts.Actor != "" {
		ub = ub.addQueryParam("actor", opts.Actor)
	}
	if opts.Target != "" {
		ub = ub.addQueryParam("target", opts.Target)
	}
	var res []core.AuditLogEntry
	correlation, err := c.get(ctx, ub.build(), &res)
	return res, correlation, err
}

func (c *Client) Member(ctx context.Context, userID string) (*service.MemberStatus, string, error) {
	var status service.MemberStatus
	correlation, err := c.get(ctx, c.url().
		setPath(api.MemberRoute).
		setPathParam("id", userID).
		build(), &status)
	return &status, correlation, err
}

func (c *Client) Ban(ctx context.Context, userID string) (string, error) {
	var res api.ModerationResponse
	return c.post(ctx, c.url().
		setPath(api.BanMemberRoute).
		setPathParam("id", userID).
		build(), nil, &res)
}

func (c *Client) Unban(ctx context.Context, userID string) (string, error) {
	var res api.ModerationResponse
	return c.post(ctx, c.url().
		setPath(api.UnbanMemberRoute).
		setPathParam("id", userID).
		build(), nil, &res)
}

type ListActionsOpts struct {
	Limit    uint
	UserID   string
	Operator string
}

// ListActions retrieves the operator actions recorded by the server, oldest first.
func (c *Client) ListActions(ctx context.Context, opts ListActionsOpts) ([]core.OperatorAction, string, error) {
	ub := c.url().setPath(api.ListActionsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	if opts.UserID != "" {
		ub = ub.addQueryParam("user_id", opts.UserID)
	}
	if opts.Operator != "" {
		ub = ub.addQueryParam("operator", opts.Operator)
	}
	var res []core.OperatorAction
	correlation, err := c.get(ctx, ub.build(), &res)
	return res, correlation, err
}

func (c *Client) RecentBans(ctx context.Context, limit uint) ([]core.AuditLogEntry, string, error) {
	ub := c.url().setPath(api.RecentBansRoute)
	if limit > 0 {
		ub = ub.addQueryParam("limit", limit)
	}
	var res []core.AuditLogEntry
	correlation, err := c.get(ctx, ub.build(), &res)
	return res, correlation, err
}

func (c *Client) SearchUsers(ctx context.Context, query string, limit uint) ([]core.User, string, error) {
	ub := c.url().setPath(api.SearchUsersRoute).addQueryParam("q", query)
	if limit > 0 {
		ub = ub.addQueryParam("limit", limit)
	}
	var res []core.User
	correlation, err := c.get(ctx, ub.build(), &res)
	return res, correlation, err
}
