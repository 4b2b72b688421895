package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgersync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PriceRecord is one row of a variant's append-only price history. A row is
// written only when the observed remote price differs from the latest recorded
// one, so the table is a history of changes, not of observations.
type PriceRecord struct {
	shared.BaseEntity
	// VariantID references the local variant row
	VariantID uuid.UUID `gorm:"type:uuid;not null;index:idx_price_records_variant"`
	// Price is the variant price observed on the storefront
	Price decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	// RecordedAt is when the change was observed
	RecordedAt time.Time `gorm:"type:timestamptz;not null"`
}

// TableName returns the table name for GORM
func (PriceRecord) TableName() string {
	return "price_records"
}

// NewPriceRecord creates a price history row for a variant
func NewPriceRecord(variantID uuid.UUID, price decimal.Decimal, recordedAt time.Time) (*PriceRecord, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "inventory: price record must reference a variant")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION", "inventory: price cannot be negative")
	}
	return &PriceRecord{
		BaseEntity: shared.NewBaseEntity(),
		VariantID:  variantID,
		Price:      price,
		RecordedAt: recordedAt,
	}, nil
}
