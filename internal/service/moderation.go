package service

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"

	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/ingest"
)

const (
	ActionBan   = "member.ban"
	ActionUnban = "member.unban"

	DefaultRecentBans = 25
	maxSearchResults  = 25
	maxBanScan        = 5000
)

// Moderation performs operator moderation actions against the group.
type Moderation struct {
	remote  core.Remote
	store   core.LogStore
	renewer ingest.Renewer
	auditor core.Auditor
	groupID string
}

// NewModeration creates the moderation service. renewer and auditor may be nil.
func NewModeration(remote core.Remote, store core.LogStore, renewer ingest.Renewer, auditor core.Auditor, groupID string) *Moderation {
	return &Moderation{
		remote:  remote,
		store:   store,
		renewer: renewer,
		auditor: auditor,
		groupID: groupID,
	}
}

func (s *Moderation) GroupID() string {
	return s.groupID
}

// MemberStatus is the ban status of a user together with who banned them.
type MemberStatus struct {
	UserID string     `json:"user_id"`
	User   *core.User `json:"user,omitempty"`

	// Member is nil if the user is not a member of the group.
	Member *core.Member `json:"member,omitempty"`
	Banned bool         `json:"banned"`

	// BannedBy is the actor of the most recent stored ban of the user.
	BannedBy     string `json:"banned_by,omitempty"`
	BannedByName string `json:"banned_by_name,omitempty"`

	// History is the stored audit log of the user, newest first.
	History []core.AuditLogEntry `json:"history,omitempty"`
}

// renewOn lists the error kinds after which withRenewal renews the session and retries.
type renewOn []core.Kind

var (
	// operator actions also retry network failures
	renewOnOperator = renewOn{core.KindUnauthorized, core.KindTransient}
	renewOnExpiry   = renewOn{core.KindUnauthorized}
)

// withRenewal runs fn and, if it failed with one of kinds, renews the session once and runs fn a second time.
// Concurrent callers that failed with the same session share a single login.
func withRenewal[T any](ctx context.Context, renewer ingest.Renewer, kinds renewOn, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var stale core.Session
	if renewer != nil {
		stale = renewer.Session()
	}
	res, err := fn(ctx)
	if err == nil || renewer == nil || ctx.Err() != nil {
		return res, err
	}
	if !slices.Contains(kinds, core.KindOf(err)) {
		return res, err
	}

	logger := log.Ctx(ctx)
	logger.Warn().Err(err).Str("op", op).Msg("remote call failed, renewing session and retrying once")
	if _, renewErr := renewer.Renew(ctx, stale); renewErr != nil {
		var zero T
		return zero, fmt.Errorf("%s: renewing session after %v: %w", op, err, renewErr)
	}
	return fn(ctx)
}

func (s *Moderation) Ban(ctx context.Context, operator, userID string) error {
	return s.moderate(ctx, ActionBan, operator, userID, s.remote.Ban)
}

func (s *Moderation) Unban(ctx context.Context, operator, userID string) error {
	return s.moderate(ctx, ActionUnban, operator, userID, s.remote.Unban)
}

func (s *Moderation) moderate(
	ctx context.Context,
	action, operator, userID string,
	call func(ctx context.Context, groupID, userID string) error,
) error {
	logger := log.Ctx(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return httpError(http.StatusBadRequest, fmt.Errorf("user id is required"))
	}

	entry := core.OperatorAction{
		ID:       xid.New().String(),
		Time:     time.Now(),
		Action:   action,
		Operator: operator,
		GroupID:  s.groupID,
		UserID:   userID,
	}
	defer func() {
		if s.auditor == nil {
			return
		}
		if err := s.auditor.Log(entry); err != nil {
			logger.Error().Err(err).Str("action", action).Msg("failed to write operator audit entry")
		}
	}()

	_, err := withRenewal(ctx, s.renewer, renewOnOperator, action, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, call(ctx, s.groupID, userID)
	})
	if err != nil {
		entry.Error = err.Error()
		return fmt.Errorf("%s %s: %w", action, userID, err)
	}

	entry.Success = true
	logger.Info().Str("action", action).Str("user_id", userID).Str("operator", operator).Msg("moderation action applied")
	return nil
}

// Member returns the ban status of userID. The user profile and the stored history are best effort.
func (s *Moderation) Member(ctx context.Context, userID string) (*MemberStatus, error) {
	logger := log.Ctx(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, httpError(http.StatusBadRequest, fmt.Errorf("user id is required"))
	}
	status := &MemberStatus{UserID: userID}

	member, err := withRenewal(ctx, s.renewer, renewOnExpiry, "member", func(ctx context.Context) (*core.Member, error) {
		return s.remote.Member(ctx, s.groupID, userID)
	})
	switch {
	case err == nil:
		status.Member = member
		status.Banned = member.Banned()
	case core.KindOf(err) == core.KindNotFound:
	default:
		return nil, fmt.Errorf("fetching member %s: %w", userID, err)
	}

	if user, err := s.remote.User(ctx, userID); err == nil {
		status.User = user
	} else {
		logger.Debug().Err(err).Str("user_id", userID).Msg("cannot fetch user profile")
	}

	if s.store == nil {
		return status, nil
	}
	history, err := s.store.ByTarget(ctx, userID, 0)
	if err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("cannot read stored history")
		return status, nil
	}
	status.History = history
	for _, e := range history {
		if e.EventType == core.EventBan {
			status.BannedBy = e.ActorID
			status.BannedByName = e.ActorDisplayName
			break
		}
	}
	return status, nil
}

func (s *Moderation) User(ctx context.Context, userID string) (*core.User, error) {
	return withRenewal(ctx, s.renewer, renewOnExpiry, "user", func(ctx context.Context) (*core.User, error) {
		return s.remote.User(ctx, userID)
	})
}

// SearchUsers searches users by display name.
func (s *Moderation) SearchUsers(ctx context.Context, query string, limit int) ([]core.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, httpError(http.StatusBadRequest, fmt.Errorf("search query is required"))
	}
	if limit <= 0 || limit > maxSearchResults {
		limit = maxSearchResults
	}
	return withRenewal(ctx, s.renewer, renewOnOperator, "search", func(ctx context.Context) ([]core.User, error) {
		return s.remote.SearchUsers(ctx, query, limit)
	})
}

// RecentBans returns the most recent stored bans, at most one per target, newest first.
// Only the newest maxBanScan bans are considered.
func (s *Moderation) RecentBans(ctx context.Context, limit int) ([]core.AuditLogEntry, error) {
	if s.store == nil {
		return nil, httpError(http.StatusServiceUnavailable, fmt.Errorf("no log store configured"))
	}
	if limit <= 0 {
		limit = DefaultRecentBans
	}

	// repeated bans of a target are skipped, widen the scan until enough distinct targets were found
	for batch := 2 * limit; ; batch *= 2 {
		batch = min(batch, maxBanScan)
		bans, err := s.store.ByEvent(ctx, core.EventBan, batch)
		if err != nil {
			return nil, fmt.Errorf("reading recent bans: %w", err)
		}
		res := latestPerTarget(bans, limit)
		if len(res) == limit || len(bans) < batch || batch == maxBanScan {
			return res, nil
		}
	}
}

func latestPerTarget(bans []core.AuditLogEntry, limit int) []core.AuditLogEntry {
	seen := make(map[string]struct{})
	res := make([]core.AuditLogEntry, 0, limit)
	for _, e := range bans {
		if e.TargetID == "" {
			continue
		}
		if _, ok := seen[e.TargetID]; ok {
			continue
		}
		seen[e.TargetID] = struct{}{}
		res = append(res, e)
		if len(res) == limit {
			break
		}
	}
	return res
}
