package tasks

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ShayBox/VRC-BAN/internal/logging"
)

// runLogger records the output of a single run in the task's log ring.
func runLogger(task *RunnableTask, run int) logging.InternalLogger {
	return logging.Func(func(level logging.Level, msg string) {
		task.AppendLog(LogEntry{
			Time:    time.Now(),
			Run:     run,
			Level:   string(level),
			Message: msg,
		})
	})
}

// newRunLogger logs to zerolog first and then to the task's log ring.
func newRunLogger(task *RunnableTask, run int, zlog zerolog.Logger) logging.InternalLogger {
	return logging.NewMultiLogger(
		logging.NewZLogger(zlog.With().Int("run", run).Logger()),
		runLogger(task, run),
	)
}
