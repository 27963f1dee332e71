package audit

import (
	"sync"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

var _ core.Auditor = (*InMemoryAuditor)(nil)

// InMemoryAuditor is an auditor that keeps operator actions in memory.
type InMemoryAuditor struct {
	mu      sync.Mutex
	actions []core.OperatorAction
}

func NewInMemoryAuditor() *InMemoryAuditor {
	return &InMemoryAuditor{
		actions: make([]core.OperatorAction, 0),
	}
}

func (i *InMemoryAuditor) Log(action core.OperatorAction) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.actions = append(i.actions, action)
	return nil
}

// GetRecent returns the last limit actions, oldest first.
func (i *InMemoryAuditor) GetRecent(limit int) ([]core.OperatorAction, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return lastN(i.actions, limit), nil
}

func (i *InMemoryAuditor) Find(filter func(action core.OperatorAction) bool, limit int) ([]core.OperatorAction, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var matches []core.OperatorAction
	for _, action := range i.actions {
		if filter(action) {
			matches = append(matches, action)
		}
	}
	return lastN(matches, limit), nil
}

func (i *InMemoryAuditor) Close() error {
	return nil // nothing to close :)
}

// lastN returns a copy of the last limit actions. A limit <= 0 returns all of them.
func lastN(actions []core.OperatorAction, limit int) []core.OperatorAction {
	if limit <= 0 || limit > len(actions) {
		limit = len(actions)
	}
	res := make([]core.OperatorAction, limit)
	copy(res, actions[len(actions)-limit:])
	return res
}
