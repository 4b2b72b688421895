package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appinventory "github.com/ledgersync/backend/internal/application/inventory"
)

// SnapshotRunner executes one inventory snapshot pass. The inventory
// application's SnapshotSync satisfies it.
type SnapshotRunner interface {
	Run(ctx context.Context) (*appinventory.SyncReport, error)
}

// SnapshotSchedulerConfig holds configuration for the periodic inventory snapshot
type SnapshotSchedulerConfig struct {
	// Enabled indicates whether the periodic snapshot runs
	Enabled bool
	// Interval is how often a snapshot run is triggered
	Interval time.Duration
}

// DefaultSnapshotSchedulerConfig returns the default snapshot configuration
func DefaultSnapshotSchedulerConfig() SnapshotSchedulerConfig {
	return SnapshotSchedulerConfig{
		Enabled:  true,
		Interval: 6 * time.Hour,
	}
}

// SnapshotScheduler triggers the inventory snapshot sync on a fixed interval.
// Runs never overlap: a tick that arrives while a run is in flight is dropped.
type SnapshotScheduler struct {
	syncer SnapshotRunner
	config SnapshotSchedulerConfig
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	inRun   bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewSnapshotScheduler creates a snapshot scheduler
func NewSnapshotScheduler(syncer SnapshotRunner, config SnapshotSchedulerConfig, logger *zap.Logger) *SnapshotScheduler {
	return &SnapshotScheduler{
		syncer: syncer,
		config: config,
		logger: logger.Named("snapshot-scheduler"),
	}
}

// Start launches the interval loop. Returns immediately; the loop runs until Stop.
func (s *SnapshotScheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("snapshot scheduler disabled")
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("snapshot scheduler started", zap.Duration("interval", s.config.Interval))
	return nil
}

// Stop halts the loop and waits for an in-flight run to finish
func (s *SnapshotScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("snapshot scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SnapshotScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes one snapshot run, skipping if another is still in flight.
// Failures are logged, never propagated.
func (s *SnapshotScheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	if s.inRun {
		s.mu.Unlock()
		s.logger.Warn("snapshot run still in flight, skipping tick")
		return
	}
	s.inRun = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inRun = false
		s.mu.Unlock()
	}()

	started := time.Now()
	report, err := s.syncer.Run(ctx)
	if err != nil {
		s.logger.Error("snapshot run failed", zap.Error(err))
		return
	}

	s.logger.Info("snapshot run finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("products_inserted", report.ProductsInserted),
		zap.Int("variants_inserted", report.VariantsInserted),
		zap.Int("warehouses_inserted", report.WarehousesInserted),
		zap.Int("price_changes", report.PriceChanges),
		zap.Int("movements_appended", report.MovementsAppended))
}
