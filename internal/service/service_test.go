package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayBox/VRC-BAN/internal/audit"
	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/ingest"
	"github.com/ShayBox/VRC-BAN/internal/leaderboard"
	"github.com/ShayBox/VRC-BAN/internal/session"
	"github.com/ShayBox/VRC-BAN/internal/store"
	"github.com/ShayBox/VRC-BAN/internal/vrchat/vrchattest"
)

const groupID = "grp_test"

var (
	t0    = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	bgCtx = context.Background()
	creds = core.Credentials{Username: "svc", Password: "pw"}
)

type memSessionStore struct {
	mu   sync.Mutex
	sess core.Session
}

func (s *memSessionStore) LoadSession() (core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess, nil
}

func (s *memSessionStore) SaveSession(sess core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
	return nil
}

func authenticated(t *testing.T) (*vrchattest.Fake, *session.Manager) {
	t.Helper()
	f := vrchattest.New(groupID, vrchattest.WithLogin(creds.Password, ""))
	mgr := session.NewManager(f, &memSessionStore{}, creds)
	f.SetSessions(mgr)
	_, err := mgr.Acquire(bgCtx)
	require.NoError(t, err)
	return f, mgr
}

func TestModeration_BanRenewsExpiredSessionOnce(t *testing.T) {
	f, mgr := authenticated(t)
	auditor := audit.NewInMemoryAuditor()
	svc := NewModeration(f, store.NewMemory(), mgr, auditor, groupID)

	f.ExpireSessions()
	require.NoError(t, svc.Ban(bgCtx, "cli", "usr_target"))
	assert.True(t, f.Banned("usr_target"))
	assert.Equal(t, 2, f.Logins())

	actions, err := auditor.GetRecent(10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionBan, actions[0].Action)
	assert.Equal(t, "cli", actions[0].Operator)
	assert.Equal(t, "usr_target", actions[0].UserID)
	assert.True(t, actions[0].Success)
	assert.NotEmpty(t, actions[0].ID)

	require.NoError(t, svc.Unban(bgCtx, "cli", "usr_target"))
	assert.False(t, f.Banned("usr_target"))
}

func TestModeration_RetriesOnlyOnce(t *testing.T) {
	f, mgr := authenticated(t)
	auditor := audit.NewInMemoryAuditor()
	svc := NewModeration(f, nil, mgr, auditor, groupID)

	unavailable := &core.TransientError{Op: "POST bans", Err: errors.New("503")}
	f.FailBans(unavailable, unavailable)

	err := svc.Ban(bgCtx, "cli", "usr_target")
	require.ErrorIs(t, err, core.ErrTransient)
	assert.False(t, f.Banned("usr_target"))
	assert.Equal(t, 2, f.Logins())

	actions, err := auditor.GetRecent(10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.False(t, actions[0].Success)
	assert.NotEmpty(t, actions[0].Error)
}

func TestModeration_ConcurrentFailuresShareOneLogin(t *testing.T) {
	f, mgr := authenticated(t)
	svc := NewModeration(f, nil, mgr, nil, groupID)

	f.ExpireSessions()

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- svc.Ban(bgCtx, "cli", fmt.Sprintf("usr_%d", i))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for i := 0; i < callers; i++ {
		assert.True(t, f.Banned(fmt.Sprintf("usr_%d", i)))
	}
	// one login at startup, one renewal
	assert.Equal(t, 2, f.Logins())
}

func TestModeration_LookupsDoNotRenewOnTransientErrors(t *testing.T) {
	f, mgr := authenticated(t)
	f.Publish(f.Entry(t0, core.EventKick, "usr_a", "usr_t"))
	f.FailAuditLogs(&core.TransientError{Op: "GET auditLogs", Err: errors.New("429")})

	boards := NewLeaderboards(nil, leaderboard.Options{},
		WithRemoteSource(ingest.NewIngestor(f, groupID), ingest.NewAccumulator()),
		WithRenewer(mgr), WithCacheTTL(0))

	_, err := boards.Get(bgCtx, SourceRemote)
	require.ErrorIs(t, err, core.ErrTransient)
	assert.Equal(t, 1, f.Logins())

	// an expired session is still renewed
	f.ExpireSessions()
	board, err := boards.Get(bgCtx, SourceRemote)
	require.NoError(t, err)
	assert.Len(t, board.Entries, 1)
	assert.Equal(t, 2, f.Logins())
}

func TestModeration_OtherErrorsAreNotRetried(t *testing.T) {
	f, mgr := authenticated(t)
	svc := NewModeration(f, nil, mgr, nil, groupID)

	f.FailBans(errors.New("forbidden"))
	require.Error(t, svc.Ban(bgCtx, "cli", "usr_target"))
	assert.Equal(t, 1, f.Logins())
}

func TestModeration_RequiresUserID(t *testing.T) {
	f, mgr := authenticated(t)
	svc := NewModeration(f, nil, mgr, nil, groupID)

	err := svc.Ban(bgCtx, "cli", "  ")
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestModeration_Member(t *testing.T) {
	f, mgr := authenticated(t)
	f.AddUser(core.User{ID: "usr_target", DisplayName: "Target"})

	s := store.NewMemory()
	for i, e := range []core.AuditLogEntry{
		{ID: "a1", CreatedAt: t0, ActorID: "usr_old", ActorDisplayName: "Old", TargetID: "usr_target", EventType: core.EventBan},
		{ID: "a2", CreatedAt: t0.Add(time.Hour), ActorID: "usr_old", TargetID: "usr_target", EventType: core.EventUnban},
		{ID: "a3", CreatedAt: t0.Add(2 * time.Hour), ActorID: "usr_mod", ActorDisplayName: "Mod", TargetID: "usr_target", EventType: core.EventBan},
	} {
		_, err := s.Insert(bgCtx, e)
		require.NoError(t, err, "entry %d", i)
	}

	svc := NewModeration(f, s, mgr, nil, groupID)
	require.NoError(t, svc.Ban(bgCtx, "cli", "usr_target"))

	status, err := svc.Member(bgCtx, "usr_target")
	require.NoError(t, err)
	assert.True(t, status.Banned)
	assert.Equal(t, "usr_mod", status.BannedBy)
	assert.Equal(t, "Mod", status.BannedByName)
	require.NotNil(t, status.User)
	assert.Equal(t, "Target", status.User.DisplayName)
	assert.Len(t, status.History, 3)

	// unknown users are not an error
	status, err = svc.Member(bgCtx, "usr_nobody")
	require.NoError(t, err)
	assert.False(t, status.Banned)
	assert.Nil(t, status.Member)
}

func TestModeration_SearchUsers(t *testing.T) {
	f, mgr := authenticated(t)
	f.AddUser(core.User{ID: "usr_1", DisplayName: "ShayBox"})
	f.AddUser(core.User{ID: "usr_2", DisplayName: "Zeal Wolf"})
	svc := NewModeration(f, nil, mgr, nil, groupID)

	users, err := svc.SearchUsers(bgCtx, "shay", 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "usr_1", users[0].ID)

	_, err = svc.SearchUsers(bgCtx, "", 0)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestModeration_RecentBans(t *testing.T) {
	s := store.NewMemory()
	for i, e := range []core.AuditLogEntry{
		{ID: "a1", CreatedAt: t0, ActorID: "usr_mod", TargetID: "usr_x", EventType: core.EventBan},
		{ID: "a2", CreatedAt: t0.Add(time.Minute), ActorID: "usr_mod", TargetID: "usr_y", EventType: core.EventKick},
		{ID: "a3", CreatedAt: t0.Add(2 * time.Minute), ActorID: "usr_mod", TargetID: "usr_z", EventType: core.EventBan},
		{ID: "a4", CreatedAt: t0.Add(3 * time.Minute), ActorID: "usr_mod", TargetID: "usr_x", EventType: core.EventBan},
	} {
		_, err := s.Insert(bgCtx, e)
		require.NoError(t, err, "entry %d", i)
	}
	svc := NewModeration(vrchattest.New(groupID), s, nil, nil, groupID)

	bans, err := svc.RecentBans(bgCtx, 0)
	require.NoError(t, err)
	require.Len(t, bans, 2)
	assert.Equal(t, "a4", bans[0].ID)
	assert.Equal(t, "a3", bans[1].ID)

	bans, err = svc.RecentBans(bgCtx, 1)
	require.NoError(t, err)
	assert.Len(t, bans, 1)
}

// banScanStore records the limits of ban queries.
type banScanStore struct {
	*store.Memory
	limits []int
}

func (s *banScanStore) ByEvent(ctx context.Context, eventType core.EventType, limit int) ([]core.AuditLogEntry, error) {
	s.limits = append(s.limits, limit)
	return s.Memory.ByEvent(ctx, eventType, limit)
}

func TestModeration_RecentBansScanIsBounded(t *testing.T) {
	s := &banScanStore{Memory: store.NewMemory()}
	_, err := s.Insert(bgCtx, core.AuditLogEntry{ID: "old", CreatedAt: t0, ActorID: "usr_mod", TargetID: "usr_y", EventType: core.EventBan})
	require.NoError(t, err)
	// usr_x was banned over and over since
	for i := 1; i <= 10; i++ {
		_, err := s.Insert(bgCtx, core.AuditLogEntry{
			ID:        fmt.Sprintf("x%02d", i),
			CreatedAt: t0.Add(time.Duration(i) * time.Minute),
			ActorID:   "usr_mod",
			TargetID:  "usr_x",
			EventType: core.EventBan,
		})
		require.NoError(t, err)
	}
	svc := NewModeration(vrchattest.New(groupID), s, nil, nil, groupID)

	bans, err := svc.RecentBans(bgCtx, 2)
	require.NoError(t, err)
	require.Len(t, bans, 2)
	assert.Equal(t, "x10", bans[0].ID)
	assert.Equal(t, "old", bans[1].ID)
	assert.Equal(t, []int{4, 8, 16}, s.limits)

	s.limits = nil
	_, err = svc.RecentBans(bgCtx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, s.limits)
}

func TestLeaderboards_StoreSourceIsCached(t *testing.T) {
	now := t0.Add(time.Hour)
	s := store.NewMemory()
	insert := func(id string, actor string) {
		_, err := s.Insert(bgCtx, core.AuditLogEntry{ID: id, CreatedAt: t0, ActorID: actor, TargetID: "usr_t", EventType: core.EventKick})
		require.NoError(t, err)
	}
	insert("a1", "usr_mod")

	f := vrchattest.New(groupID)
	f.AddUser(core.User{ID: "usr_mod", DisplayName: "Mod"})

	boards := NewLeaderboards(s, leaderboard.Options{Now: func() time.Time { return now }},
		WithNameResolver(f), WithCacheTTL(time.Minute))

	board, err := boards.Get(bgCtx, SourceStore)
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "Mod", board.Entries[0].DisplayName)

	insert("a2", "usr_other")
	board, err = boards.Get(bgCtx, SourceStore)
	require.NoError(t, err)
	assert.Len(t, board.Entries, 1)

	// unresolvable names fall back to the id
	now = now.Add(2 * time.Minute)
	board, err = boards.Get(bgCtx, SourceStore)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "usr_other", board.Entries[1].DisplayName)
}

func TestLeaderboards_RemoteSource(t *testing.T) {
	f := vrchattest.New(groupID)
	f.Publish(
		f.Entry(t0, core.EventBan, "usr_a", "usr_t1"),
		f.Entry(t0.Add(time.Minute), core.EventKick, "usr_b", "usr_t2"),
		f.Entry(t0.Add(time.Hour), core.EventUnban, "usr_a", "usr_t1"),
	)
	acc := ingest.NewAccumulator()
	boards := NewLeaderboards(nil, leaderboard.Options{},
		WithRemoteSource(ingest.NewIngestor(f, groupID), acc), WithCacheTTL(0))

	board, err := boards.Get(bgCtx, SourceRemote)
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "usr_b", board.Entries[0].ActorID)
	assert.Equal(t, 3, acc.Len())

	_, err = boards.Get(bgCtx, SourceStore)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource("")
	require.NoError(t, err)
	assert.Equal(t, SourceStore, src)

	src, err = ParseSource("remote")
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, src)

	_, err = ParseSource("cache")
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusCode(core.ErrNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(&core.TransientError{Op: "x", Err: errors.New("y")}))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("boom")))
}
