package tasks

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	MaxLogsPerTask = 1000

	DefaultTimeout = 5 * time.Minute
)

// Manager runs named tasks on an interval or on demand.
// Tasks registered with a zero interval only run when triggered.
type Manager struct {
	mu      sync.RWMutex
	tasks   map[string]*RunnableTask
	ctx     context.Context
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewManager() *Manager {
	return &Manager{
		tasks:   make(map[string]*RunnableTask),
		ctx:     context.Background(),
		timeout: DefaultTimeout,
	}
}

// SetTimeout limits the duration of a single task run.
func (m *Manager) SetTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
}

func (m *Manager) Register(name string, interval time.Duration, fn TaskFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks[name] = &RunnableTask{
		Name:         name,
		Interval:     interval,
		Handler:      fn,
		registeredAt: time.Now(),
	}
}

// Start schedules every task with an interval until ctx is cancelled.
// Triggered runs are bound to ctx as well.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ctx = ctx
	for _, task := range m.tasks {
		if task.Interval > 0 {
			m.wg.Add(1)
			go m.scheduler(ctx, task)
		}
	}
}

// Wait blocks until all schedulers have returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) lookup(name string) (*RunnableTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, ok := m.tasks[name]
	if !ok {
		return nil, TaskNotFoundError{Name: name}
	}
	return task, nil
}

// Trigger runs the task in the background. It fails with ErrAlreadyRunning if a run is in progress.
func (m *Manager) Trigger(name string) error {
	task, err := m.lookup(name)
	if err != nil {
		return err
	}
	if task.Status().Running {
		return ErrAlreadyRunning
	}
	m.mu.RLock()
	ctx, timeout := m.ctx, m.timeout
	m.mu.RUnlock()

	go task.Run(ctx, timeout)
	return nil
}

// RunNow runs the task and blocks until it finished.
func (m *Manager) RunNow(ctx context.Context, name string) error {
	task, err := m.lookup(name)
	if err != nil {
		return err
	}
	m.mu.RLock()
	timeout := m.timeout
	m.mu.RUnlock()

	return task.Run(ctx, timeout)
}

// ListStatus returns the status of every task, sorted by name.
func (m *Manager) ListStatus() []TaskStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]TaskStatus, 0, len(m.tasks))
	for _, task := range m.tasks {
		list = append(list, task.Status())
	}
	slices.SortFunc(list, func(a, b TaskStatus) int {
		return strings.Compare(a.Name, b.Name)
	})
	return list
}

func (m *Manager) GetLogs(name string) ([]LogEntry, error) {
	task, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return task.GetLogs(), nil
}

func (m *Manager) scheduler(ctx context.Context, task *RunnableTask) {
	defer m.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			timeout := m.timeout
			m.mu.RUnlock()
			_ = task.Run(ctx, timeout)
		}
	}
}
