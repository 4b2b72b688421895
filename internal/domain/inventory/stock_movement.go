package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgersync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementReason tags the source of a stock movement row
type MovementReason string

const (
	// ReasonSnapshotSync is a reconciling delta appended by the snapshot sync
	ReasonSnapshotSync MovementReason = "SNAPSHOT_SYNC"
	// ReasonManualAdjustment is a movement entered by an operator
	ReasonManualAdjustment MovementReason = "MANUAL_ADJUSTMENT"
)

// String returns the string representation of MovementReason
func (r MovementReason) String() string {
	return string(r)
}

// IsValid returns true if the reason is valid
func (r MovementReason) IsValid() bool {
	switch r {
	case ReasonSnapshotSync, ReasonManualAdjustment:
		return true
	}
	return false
}

// StockMovement is an immutable row of the per-(variant, warehouse) stock
// ledger. On-hand stock is the sum of all movement quantities for the pair;
// the snapshot sync reconciles against the storefront's absolute quantity by
// appending the missing delta, never by mutating history.
type StockMovement struct {
	shared.BaseEntity
	// VariantID references the local variant row
	VariantID uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_movements_pair,priority:1"`
	// WarehouseID references the local warehouse row
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_movements_pair,priority:2"`
	// Quantity is the signed stock delta
	Quantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	// Reason tags where the movement came from
	Reason MovementReason `gorm:"type:varchar(30);not null"`
	// MovedAt is when the movement was recorded
	MovedAt time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// NewStockMovement creates a signed stock delta for a (variant, warehouse) pair
func NewStockMovement(variantID, warehouseID uuid.UUID, quantity decimal.Decimal, reason MovementReason, movedAt time.Time) (*StockMovement, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "inventory: movement must reference a variant")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "inventory: movement must reference a warehouse")
	}
	if quantity.IsZero() {
		return nil, shared.NewDomainError("VALIDATION", "inventory: movement quantity cannot be zero")
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "inventory: invalid movement reason")
	}
	return &StockMovement{
		BaseEntity:  shared.NewBaseEntity(),
		VariantID:   variantID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		Reason:      reason,
		MovedAt:     movedAt,
	}, nil
}
