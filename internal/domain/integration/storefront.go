package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Storefront Value Objects
// ---------------------------------------------------------------------------

// OrderAddress is a billing or shipping address as reported by the storefront.
// The customer's tax identification travels embedded in the address company
// field, and the first formatted line repeats it.
type OrderAddress struct {
	// Identification is the embedded tax identification field
	Identification string
	// City is the address city name
	City string
	// Province is the address region/state name
	Province string
	// Formatted holds the storefront-rendered address lines; the first line
	// encodes the identification and is dropped when building ledger addresses
	Formatted []string
}

// OrderLineItem is one sellable line of a storefront order
type OrderLineItem struct {
	// Title is the product title shown on the order
	Title string
	// Quantity is the ordered quantity
	Quantity decimal.Decimal
	// OriginalUnitPrice is the unit price before discounts, VAT included
	OriginalUnitPrice decimal.Decimal
	// DiscountedUnitPrice is the unit price after discounts, VAT included
	DiscountedUnitPrice decimal.Decimal
	// VATRate is the line's value-added tax rate (e.g. 0.19)
	VATRate decimal.Decimal
}

// OrderTransaction is one payment transaction attached to an order
type OrderTransaction struct {
	// Gateway is the payment gateway name
	Gateway string
	// PaymentID is the gateway-side payment identifier
	PaymentID string
}

// StorefrontOrder is an order pulled from the storefront with everything the
// invoicing pipeline needs
type StorefrontOrder struct {
	// ID is the storefront's order id (used for mutations)
	ID string
	// Number is the human-facing order number (the tracking business key)
	Number string
	// FullyPaid reports whether the order has been paid in full
	FullyPaid bool
	// FinancialStatus is the storefront's payment status label
	FinancialStatus string
	// Tags are the merchant-applied order tags
	Tags []string
	// CustomerName is the buyer's name as entered on the order
	CustomerName string
	// Billing is the billing address (may be nil)
	Billing *OrderAddress
	// Shipping is the shipping address (may be nil)
	Shipping *OrderAddress
	// LineItems are the order's sellable lines
	LineItems []OrderLineItem
	// ShippingCost is the shipping fee charged on the order (VAT included)
	ShippingCost decimal.Decimal
	// Transactions are the order's payment transactions
	Transactions []OrderTransaction
	// CreatedAt is when the order was placed
	CreatedAt time.Time
}

// ---------------------------------------------------------------------------
// Catalog Value Objects
// ---------------------------------------------------------------------------

// CatalogProduct is a product pulled from the storefront catalog
type CatalogProduct struct {
	// ExternalID is the storefront product id
	ExternalID string
	// Title is the product title
	Title string
}

// CatalogVariant is a variant pulled for one product
type CatalogVariant struct {
	// ExternalID is the storefront variant id
	ExternalID string
	// Title is the variant title
	Title string
	// SKU is the merchant stock keeping unit
	SKU string
	// Price is the current storefront price
	Price decimal.Decimal
	// InventoryItemID keys the variant's inventory levels
	InventoryItemID string
}

// InventoryLevel is one variant's on-hand quantity at one location
type InventoryLevel struct {
	// LocationExternalID is the storefront location id
	LocationExternalID string
	// LocationName is the free-text location name
	LocationName string
	// Available is the absolute on-hand quantity reported by the storefront
	Available decimal.Decimal
}

// ---------------------------------------------------------------------------
// StorefrontGateway Port
// ---------------------------------------------------------------------------

// StorefrontGateway is the port to the e-commerce platform. Implementations
// live in the infrastructure layer on top of the paging query client.
type StorefrontGateway interface {
	// GetOrder fetches a single order by its business number.
	// Returns ErrOrderNotFound when the storefront has no such order.
	GetOrder(ctx context.Context, number string) (*StorefrontOrder, error)

	// AddOrderTags attaches audit tags to an order
	AddOrderTags(ctx context.Context, orderID string, tags []string) error

	// ListProducts pulls the full product catalog (paginated internally)
	ListProducts(ctx context.Context) ([]CatalogProduct, error)

	// ListVariants pulls all variants of one product (paginated internally)
	ListVariants(ctx context.Context, productExternalID string) ([]CatalogVariant, error)

	// ListInventoryLevels pulls a variant's per-location on-hand quantities
	ListInventoryLevels(ctx context.Context, inventoryItemID string) ([]InventoryLevel, error)
}
