package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CatalogRepository persists products, variants and warehouses. The sync only
// needs natural-key lookups and bulk inserts; rows are never deleted.
type CatalogRepository interface {
	// ProductIDsByExternalID maps storefront product ids to local surrogate keys
	ProductIDsByExternalID(ctx context.Context, externalIDs []string) (map[string]uuid.UUID, error)

	// VariantIDsByExternalID maps storefront variant ids to local surrogate keys
	VariantIDsByExternalID(ctx context.Context, externalIDs []string) (map[string]uuid.UUID, error)

	// WarehouseIDsByExternalID maps storefront location ids to local surrogate keys
	WarehouseIDsByExternalID(ctx context.Context, externalIDs []string) (map[string]uuid.UUID, error)

	// InsertProducts bulk-inserts new product rows
	InsertProducts(ctx context.Context, products []*Product) error

	// InsertVariants bulk-inserts new variant rows
	InsertVariants(ctx context.Context, variants []*Variant) error

	// InsertWarehouses bulk-inserts new warehouse rows
	InsertWarehouses(ctx context.Context, warehouses []*Warehouse) error
}

// PriceRepository persists the append-only price change history
type PriceRepository interface {
	// LatestPrices returns the most recent recorded price per variant id.
	// Variants with no history are absent from the map.
	LatestPrices(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)

	// InsertPriceRecords bulk-inserts price change rows
	InsertPriceRecords(ctx context.Context, records []*PriceRecord) error
}

// MovementRepository persists the append-only stock movement ledger
type MovementRepository interface {
	// SumByPair returns sum(quantity) for each requested (variant, warehouse)
	// pair. Pairs with no movements are absent from the map.
	SumByPair(ctx context.Context, pairs []MovementPair) (map[MovementPair]decimal.Decimal, error)

	// InsertMovements bulk-inserts movement rows
	InsertMovements(ctx context.Context, movements []*StockMovement) error
}

// MovementPair identifies one (variant, warehouse) stock ledger
type MovementPair struct {
	VariantID   uuid.UUID
	WarehouseID uuid.UUID
}
