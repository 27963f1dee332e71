package vrchat

import (
	"context"
	"errors"
	"net/http"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

const (
	auditLogsRoute   = "/groups/%s/auditLogs"
	memberRoute      = "/groups/%s/members/%s"
	bansRoute        = "/groups/%s/bans"
	banRoute         = "/groups/%s/bans/%s"
	userRoute        = "/users/%s"
	searchUsersRoute = "/users"
)

type banRequest struct {
	UserID string `json:"userId"`
}

// AuditLogs fetches one page of the group audit log, newest entries first.
func (c *Client) AuditLogs(ctx context.Context, groupID string, offset, limit int) (core.AuditLogPage, error) {
	var page core.AuditLogPage
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		url: c.url(auditLogsRoute, groupID).
			addQueryParam("n", limit).
			addQueryParam("offset", offset).
			build(),
		session: c.currentSession(),
	}, &page)
	return page, err
}

func (c *Client) Member(ctx context.Context, groupID, userID string) (*core.Member, error) {
	var member core.Member
	if _, err := c.do(ctx, request{
		method:  http.MethodGet,
		url:     c.url(memberRoute, groupID, userID).build(),
		session: c.currentSession(),
	}, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// Ban bans userID from the group. Banning an already banned user succeeds.
func (c *Client) Ban(ctx context.Context, groupID, userID string) error {
	_, err := c.do(ctx, request{
		method:  http.MethodPost,
		url:     c.url(bansRoute, groupID).build(),
		payload: banRequest{UserID: userID},
		session: c.currentSession(),
	}, nil)
	if alreadyApplied(err) {
		c.logger.Debug().Str("user_id", userID).Msg("user was already banned")
		return nil
	}
	return err
}

// Unban lifts the ban of userID. Unbanning a user that is not banned succeeds.
func (c *Client) Unban(ctx context.Context, groupID, userID string) error {
	_, err := c.do(ctx, request{
		method:  http.MethodDelete,
		url:     c.url(banRoute, groupID, userID).build(),
		session: c.currentSession(),
	}, nil)
	if alreadyApplied(err) || errors.Is(err, core.ErrNotFound) {
		c.logger.Debug().Str("user_id", userID).Msg("user was not banned")
		return nil
	}
	return err
}

func (c *Client) User(ctx context.Context, userID string) (*core.User, error) {
	var user core.User
	if _, err := c.do(ctx, request{
		method:  http.MethodGet,
		url:     c.url(userRoute, userID).build(),
		session: c.currentSession(),
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) SearchUsers(ctx context.Context, query string, limit int) ([]core.User, error) {
	var users []core.User
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		url: c.url(searchUsersRoute).
			addQueryParam("search", query).
			addQueryParam("n", limit).
			build(),
		session: c.currentSession(),
	}, &users)
	return users, err
}
