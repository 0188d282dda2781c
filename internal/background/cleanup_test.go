package background

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tmarsden/waypoint/internal/storage/memory"
)

type countingStore struct {
	calls atomic.Int64
}

func (c *countingStore) Cleanup() int {
	c.calls.Add(1)
	return 2
}

func TestSweepManager_RunsOnStartAndOnTick(t *testing.T) {
	store := &countingStore{}
	sm := NewSweepManager(
		map[string]Sweepable{"test": store},
		slog.New(slog.DiscardHandler),
		10*time.Millisecond,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		sm.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 sweeps, got %d", store.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	sm.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestSweepManager_ReclaimsExpiredKVEntries(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()

	if err := kv.Set(ctx, "stale", "7", time.Millisecond); err != nil {
		t.Fatalf("seeding stale key: %v", err)
	}
	if err := kv.Set(ctx, "live", "1", time.Hour); err != nil {
		t.Fatalf("seeding live key: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	sm := NewSweepManager(
		map[string]Sweepable{"event_counters": kv},
		slog.New(slog.DiscardHandler),
		time.Hour,
	)
	sm.runSweep()

	// The sweep must have reclaimed the stale key already; a second pass
	// finds nothing left to remove.
	if removed := kv.Cleanup(); removed != 0 {
		t.Errorf("entries left for the second pass = %d, want 0", removed)
	}

	_, ok, err := kv.Get(ctx, "live")
	if err != nil {
		t.Fatalf("reading live key: %v", err)
	}
	if !ok {
		t.Error("sweep removed an unexpired entry")
	}
}

func TestSweepManager_StopsOnContextCancel(t *testing.T) {
	store := &countingStore{}
	sm := NewSweepManager(
		map[string]Sweepable{"test": store},
		slog.New(slog.DiscardHandler),
		time.Hour,
	)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sm.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancel")
	}

	// The startup sweep always runs once.
	if store.calls.Load() < 1 {
		t.Fatal("expected the startup sweep to run")
	}
}
