package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/logging"
	"github.com/ShayBox/VRC-BAN/internal/session"
	"github.com/ShayBox/VRC-BAN/internal/store"
	"github.com/ShayBox/VRC-BAN/internal/vrchat/vrchattest"
)

const groupID = "grp_test"

var (
	t0      = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	nopLog  = logging.NewMultiLogger()
	bgCtx   = context.Background()
	creds   = core.Credentials{Username: "svc", Password: "pw"}
	errDisk = errors.New("disk full")
)

// publish adds n bans, one second apart, following the ones already published.
func publish(f *vrchattest.Fake, from, n int) {
	for i := from; i < from+n; i++ {
		f.Publish(f.Entry(t0.Add(time.Duration(i)*time.Second), core.EventBan, "usr_mod", "usr_target"))
	}
}

func TestIngestor_ColdSyncFetchesEveryPage(t *testing.T) {
	tests := []struct {
		entries int
		pages   int
	}{
		{0, 1},
		{1, 1},
		{100, 1},
		{101, 2},
		{200, 2},
		{250, 3},
	}
	for _, tt := range tests {
		f := vrchattest.New(groupID)
		publish(f, 0, tt.entries)
		s := store.NewMemory()

		res, err := NewIngestor(f, groupID).Sync(bgCtx, s)
		require.NoError(t, err)
		assert.Equal(t, tt.pages, f.PageRequests(), "entries=%d", tt.entries)
		assert.Equal(t, tt.pages, res.Pages)
		assert.Equal(t, tt.entries, res.Inserted)
		assert.Equal(t, tt.entries, s.Len())
	}
}

func TestIngestor_WarmSyncStopsAtKnownEntries(t *testing.T) {
	f := vrchattest.New(groupID)
	publish(f, 0, 250)
	s := store.NewMemory()
	ing := NewIngestor(f, groupID)

	_, err := ing.Sync(bgCtx, s)
	require.NoError(t, err)

	// nothing new: the first full page has no new entry
	f.ResetPageRequests()
	res, err := ing.Sync(bgCtx, s)
	require.NoError(t, err)
	assert.Equal(t, 1, f.PageRequests())
	assert.Equal(t, 0, res.Inserted)

	// a few new entries at the head: one page with new entries, one without
	publish(f, 250, 5)
	f.ResetPageRequests()
	res, err = ing.Sync(bgCtx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, f.PageRequests())
	assert.Equal(t, 5, res.Inserted)
	assert.Equal(t, 255, s.Len())
}

func TestIngestor_DropsMalformedRecords(t *testing.T) {
	f := vrchattest.New(groupID)
	good := f.Entry(t0, core.EventKick, "usr_mod", "usr_a")
	bad := f.Entry(t0.Add(time.Second), core.EventKick, "usr_mod", "usr_b")
	bad.ActorID = nil
	f.Publish(good, bad)

	s := store.NewMemory()
	res, err := NewIngestor(f, groupID).Sync(bgCtx, s)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 1, s.Len())
}

type failingSink struct {
	after int
	n     int
}

func (s *failingSink) Insert(_ context.Context, _ core.AuditLogEntry) (bool, error) {
	if s.n >= s.after {
		return false, errDisk
	}
	s.n++
	return true, nil
}

func TestIngestor_StoreFailureAbandonsPage(t *testing.T) {
	f := vrchattest.New(groupID)
	publish(f, 0, 150)

	res, err := NewIngestor(f, groupID).Sync(bgCtx, &failingSink{after: 3})
	require.ErrorIs(t, err, core.ErrStoreWrite)
	require.ErrorIs(t, err, errDisk)
	assert.Equal(t, core.KindStoreWrite, core.KindOf(err))
	assert.Equal(t, 1, f.PageRequests())
	assert.Equal(t, 3, res.Inserted)
}

func TestIngestor_RemoteFailureIsReturned(t *testing.T) {
	f := vrchattest.New(groupID)
	publish(f, 0, 10)
	f.FailAuditLogs(&core.TransientError{Op: "GET auditLogs", Err: errors.New("503")})

	_, err := NewIngestor(f, groupID).Sync(bgCtx, store.NewMemory())
	assert.Equal(t, core.KindTransient, core.KindOf(err))
}

func TestIngestor_PageSize(t *testing.T) {
	f := vrchattest.New(groupID)
	publish(f, 0, 25)

	res, err := NewIngestor(f, groupID, WithPageSize(10)).Sync(bgCtx, store.NewMemory())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 25, res.Inserted)
}

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

func newAuthenticatedFake(t *testing.T, password string) (*vrchattest.Fake, *session.Manager) {
	t.Helper()
	f := vrchattest.New(groupID, vrchattest.WithLogin(password, ""))
	mgr := session.NewManager(f, &memSessionStore{}, creds)
	f.SetSessions(mgr)
	return f, mgr
}

func TestLoop_RenewsExpiredSession(t *testing.T) {
	f, mgr := newAuthenticatedFake(t, creds.Password)
	_, err := mgr.Acquire(bgCtx)
	require.NoError(t, err)
	publish(f, 0, 3)

	s := store.NewMemory()
	loop := NewLoop(NewIngestor(f, groupID), s, mgr, time.Minute)

	f.ExpireSessions()
	_, err = loop.Cycle(bgCtx, nopLog)
	require.ErrorIs(t, err, core.ErrUnauthorized)
	assert.False(t, Fatal(err))
	assert.Equal(t, 2, f.Logins())
	assert.NotEmpty(t, loop.LastCycle().Error)

	res, err := loop.Cycle(bgCtx, nopLog)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Inserted)
	assert.Empty(t, loop.LastCycle().Error)
}

func TestLoop_RejectedRenewalIsFatal(t *testing.T) {
	f, mgr := newAuthenticatedFake(t, creds.Password)
	_, err := mgr.Acquire(bgCtx)
	require.NoError(t, err)

	// the password was rotated out of band
	rejecting := session.NewManager(vrchattest.New(groupID, vrchattest.WithLogin("rotated", "")), &memSessionStore{}, creds)
	loop := NewLoop(NewIngestor(f, groupID), store.NewMemory(), rejecting, time.Minute)

	f.ExpireSessions()
	_, err = loop.Cycle(bgCtx, nopLog)
	require.ErrorIs(t, err, core.ErrAuthRejected)
	assert.True(t, Fatal(err))

	// Run aborts with the same error
	err = loop.Run(bgCtx)
	require.ErrorIs(t, err, core.ErrAuthRejected)
}

func TestLoop_SecondFactorFailureWaitsForNextCycle(t *testing.T) {
	const secret = "JBSWY3DPEHPK3PXP"
	f := vrchattest.New(groupID,
		vrchattest.WithLogin(creds.Password, secret),
		vrchattest.WithClock(func() time.Time { return t0 }))

	// skew shifts the clock the codes are computed with
	var skew atomic.Int64
	totpCreds := core.Credentials{Username: creds.Username, Password: creds.Password, TOTPSecret: secret}
	mgr := session.NewManager(f, &memSessionStore{}, totpCreds,
		session.WithClock(func() time.Time { return t0.Add(time.Duration(skew.Load())) }))
	f.SetSessions(mgr)
	_, err := mgr.Acquire(bgCtx)
	require.NoError(t, err)
	publish(f, 0, 3)

	s := store.NewMemory()
	loop := NewLoop(NewIngestor(f, groupID), s, mgr, 10*time.Millisecond)

	f.ExpireSessions()
	skew.Store(int64(time.Hour))

	ctx, cancel := context.WithCancel(bgCtx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	// several renewals fail on the code while the loop keeps running
	require.Eventually(t, func() bool {
		return f.Logins() >= 3
	}, 2*time.Second, 5*time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	default:
	}

	skew.Store(0)
	require.Eventually(t, func() bool {
		return s.Len() == 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestLoop_TransientErrorWaitsForNextCycle(t *testing.T) {
	f := vrchattest.New(groupID)
	publish(f, 0, 3)
	f.FailAuditLogs(&core.TransientError{Op: "GET auditLogs", Err: errors.New("timeout")})
	s := store.NewMemory()
	loop := NewLoop(NewIngestor(f, groupID), s, nil, time.Minute)

	_, err := loop.Cycle(bgCtx, nopLog)
	assert.Equal(t, core.KindTransient, core.KindOf(err))
	assert.False(t, Fatal(err))

	_, err = loop.Cycle(bgCtx, nopLog)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
}

// blockingSource blocks every page request until released.
type blockingSource struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSource) AuditLogs(ctx context.Context, _ string, _, _ int) (core.AuditLogPage, error) {
	b.entered <- struct{}{}
	select {
	case <-b.release:
		return core.AuditLogPage{}, nil
	case <-ctx.Done():
		return core.AuditLogPage{}, ctx.Err()
	}
}

func TestLoop_CyclesNeverOverlap(t *testing.T) {
	src := &blockingSource{entered: make(chan struct{}, 1), release: make(chan struct{})}
	loop := NewLoop(NewIngestor(src, groupID), store.NewMemory(), nil, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := loop.Cycle(bgCtx, nopLog)
		done <- err
	}()
	<-src.entered

	_, err := loop.Cycle(bgCtx, nopLog)
	require.ErrorIs(t, err, ErrCycleInProgress)

	close(src.release)
	require.NoError(t, <-done)
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	f := vrchattest.New(groupID)
	publish(f, 0, 3)
	s := store.NewMemory()
	loop := NewLoop(NewIngestor(f, groupID), s, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(bgCtx)
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return f.PageRequests() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, 3, s.Len())
}

func TestAccumulator_Refresh(t *testing.T) {
	f := vrchattest.New(groupID)
	publish(f, 0, 120)
	ing := NewIngestor(f, groupID)
	acc := NewAccumulator()

	pass := func(ctx context.Context, sink Sink) error {
		_, err := ing.Sync(ctx, sink)
		return err
	}

	require.NoError(t, acc.Refresh(bgCtx, pass))
	assert.Equal(t, 120, acc.Len())
	assert.False(t, acc.Updated().IsZero())

	publish(f, 120, 2)
	f.ResetPageRequests()
	require.NoError(t, acc.Refresh(bgCtx, pass))
	assert.Equal(t, 122, acc.Len())
	assert.Equal(t, 2, f.PageRequests())

	snap := acc.Snapshot()
	assert.Equal(t, 2, acc.Merge([]core.AuditLogEntry{{ID: "manual_1"}, {ID: "manual_2"}, snap[0]}))
	assert.Equal(t, 124, acc.Len())
	assert.Len(t, snap, 122)
}

func TestAccumulator_FailedRefreshKeepsEntries(t *testing.T) {
	acc := NewAccumulator()
	acc.Merge([]core.AuditLogEntry{{ID: "a"}})

	err := acc.Refresh(bgCtx, func(ctx context.Context, sink Sink) error {
		_, _ = sink.Insert(ctx, core.AuditLogEntry{ID: "b"})
		return errDisk
	})
	require.ErrorIs(t, err, errDisk)
	assert.Equal(t, 2, acc.Len())
	assert.True(t, acc.Updated().IsZero())
}
