package watcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/vipul43/scout-worker/internal/service"
)

type countingRunner struct {
	calls int32
	err   error
}

func (r *countingRunner) Run(ctx context.Context, trigger, orgID string) (*service.RunResult, error) {
	atomic.AddInt32(&r.calls, 1)
	if r.err != nil {
		return nil, r.err
	}
	return &service.RunResult{}, nil
}

func TestWatcher_DisabledWithZeroInterval(t *testing.T) {
	runner := &countingRunner{}
	w := New(runner, 0, zerolog.Nop())

	if w.Enabled() {
		t.Fatal("expected watcher disabled with zero interval")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("expected disabled Start to return nil, got %v", err)
	}
	if atomic.LoadInt32(&runner.calls) != 0 {
		t.Errorf("expected no runs, got %d", runner.calls)
	}
}

func TestWatcher_RunsOnInterval(t *testing.T) {
	runner := &countingRunner{}
	w := New(runner, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&runner.calls) < 2 {
		select {
		case <-deadline:
			t.Fatal("watcher never ticked")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWatcher_SurvivesRunFailures(t *testing.T) {
	runner := &countingRunner{err: errors.New("provider down")}
	w := New(runner, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&runner.calls) < 2 {
		select {
		case <-deadline:
			t.Fatal("watcher stopped ticking after a failure")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
