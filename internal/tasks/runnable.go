package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RunnableTask is a registered task and the record of its runs.
// Logs of the last runs are kept until MaxLogsPerTask lines are exceeded.
type RunnableTask struct {
	Name     string
	Interval time.Duration
	Handler  TaskFunc

	registeredAt time.Time

	mu           sync.RWMutex
	running      bool
	runs         int
	lastRun      time.Time
	lastDuration time.Duration
	lastResult   string
	logs         []LogEntry
}

// Run executes the handler unless the task is already running.
func (t *RunnableTask) Run(ctx context.Context, timeout time.Duration) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		log.Warn().Str("task", t.Name).Msg("task is already running, skipping execution")
		return ErrAlreadyRunning
	}
	t.running = true
	t.runs++
	run := t.runs
	t.mu.Unlock()

	logger := newRunLogger(t, run, log.With().Str("task", t.Name).Logger())
	logger.Debug("starting run %d", run)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := t.Handler(ctx, logger)
	duration := time.Since(start)

	if err != nil {
		logger.Error("run failed after %s: %v", duration.Round(time.Millisecond), err)
	} else {
		logger.Info("run completed in %s", duration.Round(time.Millisecond))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.lastRun = start
	t.lastDuration = duration
	if err != nil {
		t.lastResult = fmt.Sprintf("failed: %v", err)
	} else {
		t.lastResult = "success"
	}
	return err
}

func (t *RunnableTask) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var next time.Time
	switch {
	case t.Interval <= 0:
	case t.lastRun.IsZero():
		next = t.registeredAt.Add(t.Interval)
	default:
		next = t.lastRun.Add(t.Interval)
	}

	return TaskStatus{
		Name:         t.Name,
		Running:      t.running,
		Interval:     t.Interval,
		Runs:         t.runs,
		LastRun:      t.lastRun,
		LastDuration: t.lastDuration,
		LastResult:   t.lastResult,
		NextRun:      next,
	}
}

func (t *RunnableTask) GetLogs() []LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]LogEntry(nil), t.logs...)
}

func (t *RunnableTask) AppendLog(entry LogEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.logs = append(t.logs, entry)
	if over := len(t.logs) - MaxLogsPerTask; over > 0 {
		t.logs = append(t.logs[:0:0], t.logs[over:]...)
	}
}
