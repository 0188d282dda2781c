package background

import (
	"context"
	"log/slog"
	"time"
)

// Sweepable is any store that can drop expired entries and report how many
// it removed. The security stores expire lazily on read; the sweep exists so
// entries for identifiers that never come back still get reclaimed.
type Sweepable interface {
	Cleanup() int
}

// SweepManager periodically sweeps expired entries out of the in-memory
// security stores.
type SweepManager struct {
	stores   map[string]Sweepable
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweepManager creates a sweep manager over named stores. The name is
// only used for logging.
func NewSweepManager(stores map[string]Sweepable, logger *slog.Logger, interval time.Duration) *SweepManager {
	return &SweepManager{
		stores:   stores,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (sm *SweepManager) Start(ctx context.Context) {
	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	sm.runSweep()

	for {
		select {
		case <-ticker.C:
			sm.runSweep()
		case <-sm.stopCh:
			sm.logger.Info("sweep manager stopped")
			return
		case <-ctx.Done():
			sm.logger.Info("sweep manager context cancelled")
			return
		}
	}
}

func (sm *SweepManager) runSweep() {
	total := 0
	for name, store := range sm.stores {
		removed := store.Cleanup()
		total += removed
		if removed > 0 {
			sm.logger.Debug("swept expired entries",
				slog.String("store", name),
				slog.Int("removed", removed),
			)
		}
	}

	if total > 0 {
		sm.logger.Info("sweep completed", slog.Int("total_removed", total))
	}
}

// Stop signals the sweep manager to stop
func (sm *SweepManager) Stop() {
	close(sm.stopCh)
}
