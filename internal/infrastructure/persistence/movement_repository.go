package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ledgersync/backend/internal/domain/inventory"
)

// GormMovementRepository implements MovementRepository using GORM
type GormMovementRepository struct {
	db *gorm.DB
}

// Interface compliance check
var _ inventory.MovementRepository = (*GormMovementRepository)(nil)

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// movementSumRow is the projection of one (variant, warehouse) ledger total
type movementSumRow struct {
	VariantID   uuid.UUID
	WarehouseID uuid.UUID
	Total       decimal.Decimal
}

// SumByPair returns sum(quantity) for each requested (variant, warehouse)
// pair. The query is widened to the cross product of the requested ids and
// narrowed back in memory, which keeps it a single round trip.
func (r *GormMovementRepository) SumByPair(ctx context.Context, pairs []inventory.MovementPair) (map[inventory.MovementPair]decimal.Decimal, error) {
	result := make(map[inventory.MovementPair]decimal.Decimal, len(pairs))
	if len(pairs) == 0 {
		return result, nil
	}

	variantSet := make(map[uuid.UUID]struct{}, len(pairs))
	warehouseSet := make(map[uuid.UUID]struct{}, len(pairs))
	requested := make(map[inventory.MovementPair]struct{}, len(pairs))
	for _, pair := range pairs {
		variantSet[pair.VariantID] = struct{}{}
		warehouseSet[pair.WarehouseID] = struct{}{}
		requested[pair] = struct{}{}
	}

	variantIDs := make([]uuid.UUID, 0, len(variantSet))
	for id := range variantSet {
		variantIDs = append(variantIDs, id)
	}
	warehouseIDs := make([]uuid.UUID, 0, len(warehouseSet))
	for id := range warehouseSet {
		warehouseIDs = append(warehouseIDs, id)
	}

	var rows []movementSumRow
	err := r.db.WithContext(ctx).
		Table("stock_movements").
		Select("variant_id, warehouse_id, SUM(quantity) AS total").
		Where("variant_id IN ? AND warehouse_id IN ?", variantIDs, warehouseIDs).
		Group("variant_id, warehouse_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		pair := inventory.MovementPair{VariantID: row.VariantID, WarehouseID: row.WarehouseID}
		if _, ok := requested[pair]; ok {
			result[pair] = row.Total
		}
	}
	return result, nil
}

// InsertMovements bulk-inserts movement rows
func (r *GormMovementRepository) InsertMovements(ctx context.Context, movements []*inventory.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(movements).Error
}
