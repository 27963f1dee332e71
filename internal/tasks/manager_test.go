package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShayBox/VRC-BAN/internal/logging"
)

func TestManager_RunNow(t *testing.T) {
	m := NewManager()
	m.Register("ok", 0, func(ctx context.Context, logger logging.InternalLogger) error {
		logger.Info("hello %s", "world")
		return nil
	})
	m.Register("fail", 0, func(ctx context.Context, logger logging.InternalLogger) error {
		return errors.New("boom")
	})

	if err := m.RunNow(context.Background(), "ok"); err != nil {
		t.Fatalf("RunNow(ok) error = %v", err)
	}
	if err := m.RunNow(context.Background(), "fail"); err == nil {
		t.Fatal("RunNow(fail) expected error")
	}

	status := m.ListStatus()
	if len(status) != 2 || status[0].Name != "fail" || status[1].Name != "ok" {
		t.Fatalf("ListStatus() = %+v", status)
	}
	if status[0].LastResult != "failed: boom" || status[1].LastResult != "success" {
		t.Errorf("results = %q, %q", status[0].LastResult, status[1].LastResult)
	}

	logs, err := m.GetLogs("ok")
	if err != nil {
		t.Fatalf("GetLogs() error = %v", err)
	}
	found := false
	for _, l := range logs {
		if l.Message == "hello world" && l.Level == "info" {
			found = true
		}
	}
	if !found {
		t.Errorf("GetLogs() = %+v, want the handler output", logs)
	}
}

func TestRunnableTask_LogRing(t *testing.T) {
	m := NewManager()
	m.Register("chatty", 0, func(ctx context.Context, logger logging.InternalLogger) error {
		for i := range MaxLogsPerTask {
			logger.Debug("line %d", i)
		}
		return nil
	})

	for range 2 {
		if err := m.RunNow(context.Background(), "chatty"); err != nil {
			t.Fatalf("RunNow() error = %v", err)
		}
	}

	logs, err := m.GetLogs("chatty")
	if err != nil {
		t.Fatalf("GetLogs() error = %v", err)
	}
	if len(logs) != MaxLogsPerTask {
		t.Fatalf("len(GetLogs()) = %d, want %d", len(logs), MaxLogsPerTask)
	}
	last := logs[len(logs)-1]
	if last.Run != 2 || last.Level != "info" {
		t.Errorf("last entry = %+v, want the completion of run 2", last)
	}

	status := m.ListStatus()[0]
	if status.Runs != 2 || status.Running || status.LastDuration <= 0 {
		t.Errorf("ListStatus() = %+v", status)
	}
}

func TestManager_UnknownTask(t *testing.T) {
	m := NewManager()
	var notFound TaskNotFoundError
	if err := m.Trigger("missing"); !errors.As(err, &notFound) {
		t.Errorf("Trigger() error = %v, want TaskNotFoundError", err)
	}
	if _, err := m.GetLogs("missing"); !errors.As(err, &notFound) {
		t.Errorf("GetLogs() error = %v, want TaskNotFoundError", err)
	}
}

func TestManager_SkipsOverlappingRuns(t *testing.T) {
	m := NewManager()
	release := make(chan struct{})
	started := make(chan struct{})
	m.Register("slow", 0, func(ctx context.Context, logger logging.InternalLogger) error {
		close(started)
		<-release
		return nil
	})

	done := make(chan error, 1)
	go func() {
		done <- m.RunNow(context.Background(), "slow")
	}()
	<-started

	if err := m.RunNow(context.Background(), "slow"); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("RunNow() error = %v, want ErrAlreadyRunning", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Errorf("first run error = %v", err)
	}
}

func TestManager_StartStopsOnCancel(t *testing.T) {
	m := NewManager()
	var runs atomic.Int32
	m.Register("tick", 10*time.Millisecond, func(ctx context.Context, logger logging.InternalLogger) error {
		runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)

	deadline := time.After(2 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("scheduler did not run the task")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	m.Wait()

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Errorf("task ran after cancellation")
	}
}
