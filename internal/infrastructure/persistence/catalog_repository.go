package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgersync/backend/internal/domain/inventory"
)

// GormCatalogRepository implements CatalogRepository using GORM
type GormCatalogRepository struct {
	db *gorm.DB
}

// Interface compliance check
var _ inventory.CatalogRepository = (*GormCatalogRepository)(nil)

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// externalIDRow is the projection used for natural-key lookups
type externalIDRow struct {
	ID         uuid.UUID
	ExternalID string
}

// idsByExternalID runs one natural-key lookup against the given table
func (r *GormCatalogRepository) idsByExternalID(ctx context.Context, table string, externalIDs []string) (map[string]uuid.UUID, error) {
	result := make(map[string]uuid.UUID, len(externalIDs))
	if len(externalIDs) == 0 {
		return result, nil
	}

	var rows []externalIDRow
	err := r.db.WithContext(ctx).
		Table(table).
		Select("id", "external_id").
		Where("external_id IN ?", externalIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.ExternalID] = row.ID
	}
	return result, nil
}

// ProductIDsByExternalID maps storefront product ids to local surrogate keys
func (r *GormCatalogRepository) ProductIDsByExternalID(ctx context.Context, externalIDs []string) (map[string]uuid.UUID, error) {
	return r.idsByExternalID(ctx, "products", externalIDs)
}

// VariantIDsByExternalID maps storefront variant ids to local surrogate keys
func (r *GormCatalogRepository) VariantIDsByExternalID(ctx context.Context, externalIDs []string) (map[string]uuid.UUID, error) {
	return r.idsByExternalID(ctx, "variants", externalIDs)
}

// WarehouseIDsByExternalID maps storefront location ids to local surrogate keys
func (r *GormCatalogRepository) WarehouseIDsByExternalID(ctx context.Context, externalIDs []string) (map[string]uuid.UUID, error) {
	return r.idsByExternalID(ctx, "warehouses", externalIDs)
}

// InsertProducts bulk-inserts new product rows
func (r *GormCatalogRepository) InsertProducts(ctx context.Context, products []*inventory.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(products).Error
}

// InsertVariants bulk-inserts new variant rows
func (r *GormCatalogRepository) InsertVariants(ctx context.Context, variants []*inventory.Variant) error {
	if len(variants) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(variants).Error
}

// InsertWarehouses bulk-inserts new warehouse rows
func (r *GormCatalogRepository) InsertWarehouses(ctx context.Context, warehouses []*inventory.Warehouse) error {
	if len(warehouses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(warehouses).Error
}
