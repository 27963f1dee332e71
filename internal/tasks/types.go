package tasks

import (
	"context"
	"time"

	"github.com/ShayBox/VRC-BAN/internal/logging"
)

// TaskFunc is the unit of work.
// It receives a logger which also stores the output in the task's log ring.
type TaskFunc func(ctx context.Context, logger logging.InternalLogger) error

type TaskStatus struct {
	Name         string        `json:"name,omitempty"`
	Running      bool          `json:"running,omitempty"`
	Interval     time.Duration `json:"interval,omitempty"`
	Runs         int           `json:"runs"`
	LastRun      time.Time     `json:"last_run"`
	LastDuration time.Duration `json:"last_duration,omitempty"`
	LastResult   string        `json:"last_result,omitempty"`
	NextRun      time.Time     `json:"next_run"`
}

// LogEntry is one line of task output. Run is the 1-based run that produced it.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Run     int       `json:"run"`
	Level   string    `json:"level,omitempty"`
	Message string    `json:"message,omitempty"`
}
