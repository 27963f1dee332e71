package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/ingest"
	"github.com/ShayBox/VRC-BAN/internal/leaderboard"
)

const DefaultCacheTTL = 30 * time.Minute

// Source selects where a leaderboard is computed from.
type Source string

const (
	// SourceStore computes the leaderboard from the full history of the log store.
	SourceStore Source = "store"

	// SourceRemote computes the leaderboard from a snapshot pulled straight from the remote log.
	SourceRemote Source = "remote"
)

func ParseSource(s string) (Source, error) {
	switch src := Source(s); src {
	case SourceStore, SourceRemote:
		return src, nil
	case "":
		return SourceStore, nil
	}
	return "", httpError(http.StatusBadRequest, fmt.Errorf("unknown leaderboard source %q", s))
}

type cachedBoard struct {
	board   core.Leaderboard
	expires time.Time
}

// Leaderboards computes and memoizes leaderboards.
type Leaderboards struct {
	store    core.LogStore
	remote   core.Remote
	ingestor *ingest.Ingestor
	acc      *ingest.Accumulator
	renewer  ingest.Renewer
	opts     leaderboard.Options
	ttl      time.Duration

	mu    sync.Mutex
	cache map[Source]cachedBoard
	names map[string]string
}

type LeaderboardOption func(l *Leaderboards)

// WithRemoteSource enables SourceRemote, fed by ingestor into acc.
func WithRemoteSource(ingestor *ingest.Ingestor, acc *ingest.Accumulator) LeaderboardOption {
	return func(l *Leaderboards) {
		l.ingestor = ingestor
		l.acc = acc
	}
}

// WithNameResolver resolves actors without a known display name through remote.
func WithNameResolver(remote core.Remote) LeaderboardOption {
	return func(l *Leaderboards) {
		l.remote = remote
	}
}

func WithRenewer(renewer ingest.Renewer) LeaderboardOption {
	return func(l *Leaderboards) {
		l.renewer = renewer
	}
}

// WithCacheTTL sets how long a computed leaderboard is reused. Zero disables the cache.
func WithCacheTTL(ttl time.Duration) LeaderboardOption {
	return func(l *Leaderboards) {
		l.ttl = ttl
	}
}

func NewLeaderboards(store core.LogStore, opts leaderboard.Options, options ...LeaderboardOption) *Leaderboards {
	l := &Leaderboards{
		store: store,
		opts:  opts,
		ttl:   DefaultCacheTTL,
		cache: make(map[Source]cachedBoard),
		names: make(map[string]string),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *Leaderboards) now() time.Time {
	if l.opts.Now != nil {
		return l.opts.Now()
	}
	return time.Now()
}

// Get returns the leaderboard of source, from the cache if it has not expired yet.
func (l *Leaderboards) Get(ctx context.Context, source Source) (core.Leaderboard, error) {
	l.mu.Lock()
	cached, ok := l.cache[source]
	l.mu.Unlock()
	if ok && l.now().Before(cached.expires) {
		return cached.board, nil
	}
	return l.Refresh(ctx, source)
}

// Refresh recomputes the leaderboard of source and replaces the cached one.
func (l *Leaderboards) Refresh(ctx context.Context, source Source) (core.Leaderboard, error) {
	entries, err := l.entries(ctx, source)
	if err != nil {
		return core.Leaderboard{}, err
	}

	board := leaderboard.Build(entries, l.opts)
	l.resolveNames(ctx, &board)

	if l.ttl > 0 {
		l.mu.Lock()
		l.cache[source] = cachedBoard{board: board, expires: l.now().Add(l.ttl)}
		l.mu.Unlock()
	}
	return board, nil
}

// Invalidate drops every cached leaderboard.
func (l *Leaderboards) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.cache)
}

func (l *Leaderboards) entries(ctx context.Context, source Source) ([]core.AuditLogEntry, error) {
	switch source {
	case SourceStore:
		if l.store == nil {
			return nil, httpError(http.StatusServiceUnavailable, fmt.Errorf("no log store configured"))
		}
		entries, err := l.store.Window(ctx, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("reading log store: %w", err)
		}
		return entries, nil

	case SourceRemote:
		if l.acc == nil || l.ingestor == nil {
			return nil, httpError(http.StatusServiceUnavailable, fmt.Errorf("remote leaderboard source is not enabled"))
		}
		_, err := withRenewal(ctx, l.renewer, renewOnExpiry, "leaderboard.refresh", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, l.acc.Refresh(ctx, func(ctx context.Context, sink ingest.Sink) error {
				_, err := l.ingestor.Sync(ctx, sink)
				return err
			})
		})
		if err != nil {
			return nil, fmt.Errorf("refreshing remote snapshot: %w", err)
		}
		return l.acc.Snapshot(), nil
	}
	return nil, httpError(http.StatusBadRequest, fmt.Errorf("unknown leaderboard source %q", source))
}

// resolveNames fills in missing display names of account actors. Unresolvable ids keep the id as their name.
func (l *Leaderboards) resolveNames(ctx context.Context, board *core.Leaderboard) {
	for i := range board.Entries {
		e := &board.Entries[i]
		if e.DisplayName != "" {
			continue
		}
		e.DisplayName = l.displayName(ctx, e.ActorID)
	}
}

func (l *Leaderboards) displayName(ctx context.Context, actorID string) string {
	l.mu.Lock()
	name, ok := l.names[actorID]
	l.mu.Unlock()
	if ok {
		return name
	}
	if l.remote == nil || !leaderboard.IsAccount(actorID) {
		return actorID
	}

	user, err := l.remote.User(ctx, actorID)
	if err != nil || user.DisplayName == "" {
		log.Ctx(ctx).Debug().Err(err).Str("actor_id", actorID).Msg("cannot resolve display name")
		return actorID
	}
	l.mu.Lock()
	l.names[actorID] = user.DisplayName
	l.mu.Unlock()
	return user.DisplayName
}
