package inventory

import (
	"github.com/google/uuid"
	"github.com/ledgersync/backend/internal/domain/shared"
)

// The inventory snapshot mirrors the storefront catalog. Entities are created
// on first sight of their external id and never deleted; the sync only ever
// inserts rows it has not seen before.

// Product represents a storefront product
type Product struct {
	shared.BaseEntity
	// ExternalID is the product id on the storefront (natural key)
	ExternalID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_products_external_id"`
	// Name is the product title as reported by the storefront
	Name string `gorm:"type:varchar(255);not null"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a product from its storefront identity
func NewProduct(externalID, name string) (*Product, error) {
	if externalID == "" {
		return nil, shared.NewDomainError("VALIDATION", "inventory: product external id cannot be empty")
	}
	return &Product{
		BaseEntity: shared.NewBaseEntity(),
		ExternalID: externalID,
		Name:       name,
	}, nil
}

// Variant represents a sellable variant of a product
type Variant struct {
	shared.BaseEntity
	// ExternalID is the variant id on the storefront (natural key)
	ExternalID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_variants_external_id"`
	// ProductID references the owning local product row
	ProductID uuid.UUID `gorm:"type:uuid;not null;index:idx_variants_product"`
	// Name is the variant title
	Name string `gorm:"type:varchar(255);not null"`
	// SKU is the merchant stock keeping unit
	SKU string `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (Variant) TableName() string {
	return "variants"
}

// NewVariant creates a variant belonging to a local product
func NewVariant(externalID string, productID uuid.UUID, name, sku string) (*Variant, error) {
	if externalID == "" {
		return nil, shared.NewDomainError("VALIDATION", "inventory: variant external id cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION", "inventory: variant must belong to a product")
	}
	return &Variant{
		BaseEntity: shared.NewBaseEntity(),
		ExternalID: externalID,
		ProductID:  productID,
		Name:       name,
		SKU:        sku,
	}, nil
}

// Warehouse represents a storefront inventory location
type Warehouse struct {
	shared.BaseEntity
	// ExternalID is the location id on the storefront (natural key)
	ExternalID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_warehouses_external_id"`
	// Location is the free-text location name/address
	Location string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates a warehouse from its storefront identity
func NewWarehouse(externalID, location string) (*Warehouse, error) {
	if externalID == "" {
		return nil, shared.NewDomainError("VALIDATION", "inventory: warehouse external id cannot be empty")
	}
	return &Warehouse{
		BaseEntity: shared.NewBaseEntity(),
		ExternalID: externalID,
		Location:   location,
	}, nil
}
