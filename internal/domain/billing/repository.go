package billing

import (
	"context"
)

// OrderTrackingRepository defines the persistence port for tracking records
type OrderTrackingRepository interface {
	// FindByNumber finds a tracking record by order number.
	// Returns ErrTrackingNotFound when no record exists.
	FindByNumber(ctx context.Context, number string) (*OrderTracking, error)

	// CreateIfAbsent inserts the record unless one already exists for its
	// number, in which case the existing record is returned. The unique
	// constraint on the number makes this first-writer-wins under concurrent
	// webhook deliveries.
	CreateIfAbsent(ctx context.Context, record *OrderTracking) (*OrderTracking, error)

	// Update persists changes to an existing record
	Update(ctx context.Context, record *OrderTracking) error

	// FindRetryable lists records that are not yet posted, have retry budget
	// left, and carry a status log entry from a previous failed run
	FindRetryable(ctx context.Context, limit int) ([]OrderTracking, error)
}
