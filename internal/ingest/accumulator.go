package ingest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

// Accumulator is an in-memory collection of entries that grows with every refresh.
// It backs views that are computed straight from the remote log instead of the log store.
type Accumulator struct {
	mu      sync.Mutex
	entries []core.AuditLogEntry
	ids     map[string]struct{}
	updated time.Time
}

func NewAccumulator() *Accumulator {
	return &Accumulator{
		ids: make(map[string]struct{}),
	}
}

// lockedSink inserts into the accumulator while Refresh holds its lock.
type lockedSink struct {
	a *Accumulator
}

func (s lockedSink) Insert(_ context.Context, entry core.AuditLogEntry) (bool, error) {
	return s.a.add(entry), nil
}

// add must be called with a.mu held.
func (a *Accumulator) add(entry core.AuditLogEntry) bool {
	if _, ok := a.ids[entry.ID]; ok {
		return false
	}
	a.ids[entry.ID] = struct{}{}
	a.entries = append(a.entries, entry)
	return true
}

// Refresh holds the lock for the whole pass of fn, which feeds new entries into sink.
// Concurrent callers wait for the running pass instead of starting their own.
func (a *Accumulator) Refresh(ctx context.Context, fn func(ctx context.Context, sink Sink) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := fn(ctx, lockedSink{a: a}); err != nil {
		return err
	}
	a.updated = time.Now()
	return nil
}

// Merge adds entries that are not yet known and returns how many were new.
func (a *Accumulator) Merge(entries []core.AuditLogEntry) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, e := range entries {
		if a.add(e) {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of all entries in insertion order.
func (a *Accumulator) Snapshot() []core.AuditLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.entries)
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Updated returns the time of the last successful refresh.
func (a *Accumulator) Updated() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.updated
}
