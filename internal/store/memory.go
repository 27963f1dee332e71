package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

var _ core.LogStore = (*Memory)(nil)

// Memory is a LogStore that lives as long as the process.
type Memory struct {
	mu sync.RWMutex

	// entries is sorted by (created_at, id) ascending
	entries []core.AuditLogEntry
	ids     map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		entries: make([]core.AuditLogEntry, 0),
		ids:     make(map[string]struct{}),
	}
}

func compareEntries(a, b core.AuditLogEntry) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func (s *Memory) Insert(_ context.Context, entry core.AuditLogEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[entry.ID]; ok {
		return false, nil
	}
	idx, _ := slices.BinarySearchFunc(s.entries, entry, compareEntries)
	s.entries = slices.Insert(s.entries, idx, entry)
	s.ids[entry.ID] = struct{}{}
	return true, nil
}

// newest walks the entries newest first and collects those matching keep.
func (s *Memory) newest(limit int, keep func(e core.AuditLogEntry) bool) []core.AuditLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]core.AuditLogEntry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(res) >= limit {
			break
		}
		if keep(s.entries[i]) {
			res = append(res, s.entries[i])
		}
	}
	return res
}

func (s *Memory) ByTarget(_ context.Context, targetID string, limit int) ([]core.AuditLogEntry, error) {
	return s.newest(limit, func(e core.AuditLogEntry) bool {
		return e.TargetID == targetID
	}), nil
}

func (s *Memory) ByActor(_ context.Context, actorID string, limit int) ([]core.AuditLogEntry, error) {
	return s.newest(limit, func(e core.AuditLogEntry) bool {
		return e.ActorID == actorID
	}), nil
}

func (s *Memory) ByEvent(_ context.Context, eventType core.EventType, limit int) ([]core.AuditLogEntry, error) {
	return s.newest(limit, func(e core.AuditLogEntry) bool {
		return e.EventType == eventType
	}), nil
}

func (s *Memory) Recent(_ context.Context, limit int) ([]core.AuditLogEntry, error) {
	return s.newest(limit, func(core.AuditLogEntry) bool {
		return true
	}), nil
}

func (s *Memory) Window(_ context.Context, since time.Time) ([]core.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := 0
	if !since.IsZero() {
		idx, _ = slices.BinarySearchFunc(s.entries, since, func(e core.AuditLogEntry, t time.Time) int {
			if e.CreatedAt.Before(t) {
				return -1
			}
			return 1
		})
	}
	return slices.Clone(s.entries[idx:]), nil
}

// Len returns the number of stored entries.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Memory) Close() error {
	return nil
}
