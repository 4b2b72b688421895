package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed delivery IDs to prevent duplicate processing
// of redelivered webhook events. It is best-effort: the invoicing pipeline's own
// skip-if-already-invoiced gates remain the source of truth.
type IdempotencyStore interface {
	// MarkProcessed marks a delivery as processed with a TTL.
	// Returns true if the delivery was newly marked, false if it was already seen.
	MarkProcessed(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a delivery has already been processed
	IsProcessed(ctx context.Context, deliveryID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for webhook delivery de-duplication
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed delivery IDs.
	// After this duration, the same delivery ID can be processed again.
	// Default: 24 hours
	TTL time.Duration

	// Enabled determines whether de-duplication is enabled
	// Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
