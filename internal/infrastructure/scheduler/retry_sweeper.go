package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ledgersync/backend/internal/domain/billing"
)

// OrderProcessor runs the reconciliation pipeline for one order number. The
// billing application's OrderReconciler satisfies it.
type OrderProcessor interface {
	Process(ctx context.Context, number string, force bool) (*billing.OrderTracking, error)
}

// RetrySweeperConfig holds configuration for the reconciliation retry sweep
type RetrySweeperConfig struct {
	// Enabled indicates whether the sweep runs at all
	Enabled bool
	// Interval is how often the sweep scans for retryable orders
	Interval time.Duration
	// BatchSize caps how many orders one sweep pass picks up
	BatchSize int
}

// DefaultRetrySweeperConfig returns the default sweep configuration
func DefaultRetrySweeperConfig() RetrySweeperConfig {
	return RetrySweeperConfig{
		Enabled:   true,
		Interval:  10 * time.Minute,
		BatchSize: 50,
	}
}

// RetrySweeper periodically re-runs the reconciliation pipeline for orders
// that failed a previous run and still have retry budget. The sweep is the
// only component that consumes budget; webhook-triggered runs are free.
type RetrySweeper struct {
	trackings  billing.OrderTrackingRepository
	reconciler OrderProcessor
	config     RetrySweeperConfig
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewRetrySweeper creates a retry sweeper
func NewRetrySweeper(
	trackings billing.OrderTrackingRepository,
	reconciler OrderProcessor,
	config RetrySweeperConfig,
	logger *zap.Logger,
) *RetrySweeper {
	return &RetrySweeper{
		trackings:  trackings,
		reconciler: reconciler,
		config:     config,
		logger:     logger.Named("retry-sweeper"),
	}
}

// Start launches the sweep loop. Returns immediately; the loop runs until Stop.
func (s *RetrySweeper) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("retry sweep disabled")
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

	s.logger.Info("retry sweep started",
		zap.Duration("interval", s.config.Interval),
		zap.Int("batch_size", s.config.BatchSize))
	return nil
}

// Stop halts the sweep loop and waits for an in-flight pass to finish
func (s *RetrySweeper) Stop(ctx context.Context) error {
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
		s.logger.Info("retry sweep stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RetrySweeper) loop(ctx context.Context) {
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
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep pass. Every failure stays inside the pass;
// the sweep never propagates errors to its caller.
func (s *RetrySweeper) SweepOnce(ctx context.Context) {
	retryable, err := s.trackings.FindRetryable(ctx, s.config.BatchSize)
	if err != nil {
		s.logger.Error("failed to list retryable orders", zap.Error(err))
		return
	}
	if len(retryable) == 0 {
		return
	}

	s.logger.Info("sweeping retryable orders", zap.Int("count", len(retryable)))
	for i := range retryable {
		record := &retryable[i]

		updated, err := s.reconciler.Process(ctx, record.Number, false)
		if err != nil {
			s.logger.Error("sweep run failed",
				zap.String("order_number", record.Number),
				zap.Error(err))
			continue
		}

		// Budget is charged after the attempt, and only when the run left
		// the record failed again. Charging up front would block the record
		// before its last attempt ever ran.
		if updated != nil && !updated.Posted && updated.StatusLog != "" {
			updated.ConsumeRetry()
			if err := s.trackings.Update(ctx, updated); err != nil {
				s.logger.Error("failed to consume retry budget",
					zap.String("order_number", updated.Number),
					zap.Error(err))
			}
		}

		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
}
