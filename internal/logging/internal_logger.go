package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

// InternalLogger is used where log output must also be captured at runtime, e.g. by tasks.
type InternalLogger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Func adapts a function receiving formatted messages to an InternalLogger.
type Func func(level Level, msg string)

var _ InternalLogger = Func(nil)

func (fn Func) Debug(format string, args ...any) { fn(LevelDebug, fmt.Sprintf(format, args...)) }
func (fn Func) Info(format string, args ...any)  { fn(LevelInfo, fmt.Sprintf(format, args...)) }
func (fn Func) Warn(format string, args ...any)  { fn(LevelWarn, fmt.Sprintf(format, args...)) }
func (fn Func) Error(format string, args ...any) { fn(LevelError, fmt.Sprintf(format, args...)) }

var zerologLevels = map[Level]zerolog.Level{
	LevelDebug: zerolog.DebugLevel,
	LevelInfo:  zerolog.InfoLevel,
	LevelWarn:  zerolog.WarnLevel,
	LevelError: zerolog.ErrorLevel,
}

// NewZLogger writes to zlog.
func NewZLogger(zlog zerolog.Logger) InternalLogger {
	return Func(func(level Level, msg string) {
		zlog.WithLevel(zerologLevels[level]).Msg(msg)
	})
}

var _ InternalLogger = MultiLogger(nil)

// MultiLogger writes every message to all of its loggers, in order.
type MultiLogger []InternalLogger

func NewMultiLogger(loggers ...InternalLogger) MultiLogger {
	return loggers
}

func (l MultiLogger) Debug(format string, args ...any) {
	for _, logger := range l {
		logger.Debug(format, args...)
	}
}

func (l MultiLogger) Info(format string, args ...any) {
	for _, logger := range l {
		logger.Info(format, args...)
	}
}

func (l MultiLogger) Warn(format string, args ...any) {
	for _, logger := range l {
		logger.Warn(format, args...)
	}
}

func (l MultiLogger) Error(format string, args ...any) {
	for _, logger := range l {
		logger.Error(format, args...)
	}
}
