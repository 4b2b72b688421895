package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgersync/backend/internal/domain/billing"
)

// GormOrderTrackingRepository implements OrderTrackingRepository using GORM
type GormOrderTrackingRepository struct {
	db *gorm.DB
}

// Interface compliance check
var _ billing.OrderTrackingRepository = (*GormOrderTrackingRepository)(nil)

// NewGormOrderTrackingRepository creates a new GormOrderTrackingRepository
func NewGormOrderTrackingRepository(db *gorm.DB) *GormOrderTrackingRepository {
	return &GormOrderTrackingRepository{db: db}
}

// FindByNumber finds a tracking record by its order number
func (r *GormOrderTrackingRepository) FindByNumber(ctx context.Context, number string) (*billing.OrderTracking, error) {
	var tracking billing.OrderTracking
	if err := r.db.WithContext(ctx).First(&tracking, "number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, billing.ErrTrackingNotFound
		}
		return nil, err
	}
	return &tracking, nil
}

// CreateIfAbsent inserts a tracking record unless one already exists for the
// same order number. The winning row is returned either way, so concurrent
// intakes of the same order converge on one record.
func (r *GormOrderTrackingRepository) CreateIfAbsent(ctx context.Context, tracking *billing.OrderTracking) (*billing.OrderTracking, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "number"}},
			DoNothing: true,
		}).
		Create(tracking)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected > 0 {
		return tracking, nil
	}
	// lost the race, fetch the existing row
	return r.FindByNumber(ctx, tracking.Number)
}

// Update persists the tracking record's current state
func (r *GormOrderTrackingRepository) Update(ctx context.Context, tracking *billing.OrderTracking) error {
	return r.db.WithContext(ctx).Save(tracking).Error
}

// FindRetryable lists failed, non-terminal records that still have retry
// budget, oldest first
func (r *GormOrderTrackingRepository) FindRetryable(ctx context.Context, limit int) ([]billing.OrderTracking, error) {
	var trackings []billing.OrderTracking
	err := r.db.WithContext(ctx).
		Where("status_log <> '' AND retries_remaining > 0 AND posted = ?", false).
		Order("updated_at ASC").
		Limit(limit).
		Find(&trackings).Error
	if err != nil {
		return nil, err
	}
	return trackings, nil
}
