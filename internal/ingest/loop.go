package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/logging"
)

const DefaultInterval = 10 * time.Minute

// ErrCycleInProgress is returned by Cycle if another cycle is running.
var ErrCycleInProgress = errors.New("ingest cycle already in progress")

// Renewer replaces a session that the remote service no longer accepts.
type Renewer interface {
	Session() core.Session
	Renew(ctx context.Context, stale core.Session) (core.Session, error)
}

// Loop runs the ingestor against the log store, once per interval.
type Loop struct {
	ingestor *Ingestor
	sink     Sink
	renewer  Renewer
	interval time.Duration

	mu sync.Mutex

	statusMu sync.RWMutex
	last     CycleStatus
}

// CycleStatus describes the latest finished cycle.
type CycleStatus struct {
	Finished time.Time `json:"finished"`
	Result   Result    `json:"result"`
	Error    string    `json:"error,omitempty"`
}

func NewLoop(ingestor *Ingestor, sink Sink, renewer Renewer, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		ingestor: ingestor,
		sink:     sink,
		renewer:  renewer,
		interval: interval,
	}
}

func (l *Loop) Interval() time.Duration {
	return l.interval
}

func (l *Loop) LastCycle() CycleStatus {
	l.statusMu.RLock()
	defer l.statusMu.RUnlock()
	return l.last
}

// Cycle runs one pass into the log store and applies the error policy.
// The returned error is fatal only if Fatal reports so, every other error is retried by the next cycle.
func (l *Loop) Cycle(ctx context.Context, logger logging.InternalLogger) (Result, error) {
	if !l.mu.TryLock() {
		return Result{}, ErrCycleInProgress
	}
	defer l.mu.Unlock()

	var stale core.Session
	if l.renewer != nil {
		stale = l.renewer.Session()
	}
	start := time.Now()
	res, err := l.ingestor.Sync(ctx, l.sink)
	l.record(res, err)

	if err == nil {
		logger.Info("ingested %d new of %d fetched entries in %d pages (%d dropped) in %s",
			res.Inserted, res.Fetched, res.Pages, res.Dropped, time.Since(start).Round(time.Millisecond))
		return res, nil
	}
	if ctx.Err() != nil {
		return res, err
	}

	switch kind := core.KindOf(err); kind {
	case core.KindUnauthorized:
		if l.renewer == nil {
			logger.Error("session was not accepted: %v", err)
			break
		}
		logger.Warn("session was not accepted, renewing: %v", err)
		if _, renewErr := l.renewer.Renew(ctx, stale); renewErr != nil {
			if Fatal(renewErr) {
				logger.Error("cannot renew session: %v", renewErr)
				return res, fmt.Errorf("renewing session: %w", renewErr)
			}
			logger.Warn("session renewal failed, retrying next cycle: %v", renewErr)
		}
	case core.KindTransient, core.KindStoreWrite:
		logger.Warn("cycle failed (%s), retrying next cycle: %v", kind, err)
	default:
		logger.Error("cycle failed: %v", err)
	}
	return res, err
}

// Fatal reports whether err means that no later cycle can succeed without operator action.
// A failed second factor is not fatal, the next cycle uses a new code.
func Fatal(err error) bool {
	return core.KindOf(err) == core.KindAuthRejected
}

// Run runs a cycle immediately and then once per interval until ctx is cancelled.
// It returns nil on cancellation and the error of a fatal cycle otherwise.
func (l *Loop) Run(ctx context.Context) error {
	logger := logging.NewZLogger(log.With().Str("component", "ingest-loop").Logger())

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		_, err := l.Cycle(ctx, logger)
		switch {
		case errors.Is(err, ErrCycleInProgress):
			logger.Debug("skipping scheduled cycle, another one is running")
		case Fatal(err):
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (l *Loop) record(res Result, err error) {
	status := CycleStatus{
		Finished: time.Now(),
		Result:   res,
	}
	if err != nil {
		status.Error = err.Error()
	}
	l.statusMu.Lock()
	l.last = status
	l.statusMu.Unlock()
}
