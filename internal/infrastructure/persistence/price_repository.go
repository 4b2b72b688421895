package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ledgersync/backend/internal/domain/inventory"
)

// GormPriceRepository implements PriceRepository using GORM
type GormPriceRepository struct {
	db *gorm.DB
}

// Interface compliance check
var _ inventory.PriceRepository = (*GormPriceRepository)(nil)

// NewGormPriceRepository creates a new GormPriceRepository
func NewGormPriceRepository(db *gorm.DB) *GormPriceRepository {
	return &GormPriceRepository{db: db}
}

// latestPriceRow is the projection of the most recent price per variant
type latestPriceRow struct {
	VariantID uuid.UUID
	Price     decimal.Decimal
}

// LatestPrices returns the most recent recorded price per variant id
func (r *GormPriceRepository) LatestPrices(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	result := make(map[uuid.UUID]decimal.Decimal, len(variantIDs))
	if len(variantIDs) == 0 {
		return result, nil
	}

	var rows []latestPriceRow
	err := r.db.WithContext(ctx).
		Table("price_records").
		Select("DISTINCT ON (variant_id) variant_id, price").
		Where("variant_id IN ?", variantIDs).
		Order("variant_id, recorded_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.VariantID] = row.Price
	}
	return result, nil
}

// InsertPriceRecords bulk-inserts price change rows
func (r *GormPriceRepository) InsertPriceRecords(ctx context.Context, records []*inventory.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(records).Error
}
