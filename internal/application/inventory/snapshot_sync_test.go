package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgersync/backend/internal/domain/integration"
	"github.com/ledgersync/backend/internal/domain/inventory"
)

// =============================================================================
// Mock storefront
// =============================================================================

type MockStorefrontGateway struct {
	mock.Mock
}

func (m *MockStorefrontGateway) GetOrder(ctx context.Context, number string) (*integration.StorefrontOrder, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.StorefrontOrder), args.Error(1)
}

func (m *MockStorefrontGateway) AddOrderTags(ctx context.Context, orderID string, tags []string) error {
	args := m.Called(ctx, orderID, tags)
	return args.Error(0)
}

func (m *MockStorefrontGateway) ListProducts(ctx context.Context) ([]integration.CatalogProduct, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.CatalogProduct), args.Error(1)
}

func (m *MockStorefrontGateway) ListVariants(ctx context.Context, productExternalID string) ([]integration.CatalogVariant, error) {
	args := m.Called(ctx, productExternalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.CatalogVariant), args.Error(1)
}

func (m *MockStorefrontGateway) ListInventoryLevels(ctx context.Context, inventoryItemID string) ([]integration.InventoryLevel, error) {
	args := m.Called(ctx, inventoryItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.InventoryLevel), args.Error(1)
}

// =============================================================================
// In-memory repositories
// =============================================================================

type memCatalog struct {
	products   map[string]uuid.UUID
	variants   map[string]uuid.UUID
	warehouses map[string]uuid.UUID
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		products:   make(map[string]uuid.UUID),
		variants:   make(map[string]uuid.UUID),
		warehouses: make(map[string]uuid.UUID),
	}
}

func subset(known map[string]uuid.UUID, externalIDs []string) map[string]uuid.UUID {
	out := make(map[string]uuid.UUID)
	for _, id := range externalIDs {
		if local, ok := known[id]; ok {
			out[id] = local
		}
	}
	return out
}

func (c *memCatalog) ProductIDsByExternalID(ctx context.Context, externalIDs []string) (map[string]uuid.UUID, error) {
	return subset(c.products, externalIDs), nil
}

func (c *memCatalog) VariantIDsByExternalID(ctx context.Context, externalIDs []string) (map[string]uuid.UUID, error) {
	return subset(c.variants, externalIDs), nil
}

func (c *memCatalog) WarehouseIDsByExternalID(ctx context.Context, externalIDs []string) (map[string]uuid.UUID, error) {
	return subset(c.warehouses, externalIDs), nil
}

func (c *memCatalog) InsertProducts(ctx context.Context, products []*inventory.Product) error {
	for _, p := range products {
		c.products[p.ExternalID] = p.ID
	}
	return nil
}

func (c *memCatalog) InsertVariants(ctx context.Context, variants []*inventory.Variant) error {
	for _, v := range variants {
		c.variants[v.ExternalID] = v.ID
	}
	return nil
}

func (c *memCatalog) InsertWarehouses(ctx context.Context, warehouses []*inventory.Warehouse) error {
	for _, w := range warehouses {
		c.warehouses[w.ExternalID] = w.ID
	}
	return nil
}

type memPrices struct {
	latest  map[uuid.UUID]decimal.Decimal
	records []*inventory.PriceRecord
}

func newMemPrices() *memPrices {
	return &memPrices{latest: make(map[uuid.UUID]decimal.Decimal)}
}

func (p *memPrices) LatestPrices(ctx context.Context, variantIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal)
	for _, id := range variantIDs {
		if price, ok := p.latest[id]; ok {
			out[id] = price
		}
	}
	return out, nil
}

func (p *memPrices) InsertPriceRecords(ctx context.Context, records []*inventory.PriceRecord) error {
	for _, r := range records {
		p.latest[r.VariantID] = r.Price
		p.records = append(p.records, r)
	}
	return nil
}

type memMovements struct {
	sums    map[inventory.MovementPair]decimal.Decimal
	records []*inventory.StockMovement
}

func newMemMovements() *memMovements {
	return &memMovements{sums: make(map[inventory.MovementPair]decimal.Decimal)}
}

func (m *memMovements) SumByPair(ctx context.Context, pairs []inventory.MovementPair) (map[inventory.MovementPair]decimal.Decimal, error) {
	out := make(map[inventory.MovementPair]decimal.Decimal)
	for _, pair := range pairs {
		if sum, ok := m.sums[pair]; ok {
			out[pair] = sum
		}
	}
	return out, nil
}

func (m *memMovements) InsertMovements(ctx context.Context, movements []*inventory.StockMovement) error {
	for _, mv := range movements {
		pair := inventory.MovementPair{VariantID: mv.VariantID, WarehouseID: mv.WarehouseID}
		m.sums[pair] = m.sums[pair].Add(mv.Quantity)
		m.records = append(m.records, mv)
	}
	return nil
}

// =============================================================================
// Fixture
// =============================================================================

type syncFixture struct {
	storefront *MockStorefrontGateway
	catalog    *memCatalog
	prices     *memPrices
	movements  *memMovements
	sync       *SnapshotSync
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		storefront: new(MockStorefrontGateway),
		catalog:    newMemCatalog(),
		prices:     newMemPrices(),
		movements:  newMemMovements(),
	}
	f.sync = NewSnapshotSync(f.storefront, f.catalog, f.prices, f.movements)
	f.sync.now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	return f
}

// expectCatalog wires one product with one variant at one location
func (f *syncFixture) expectCatalog(price decimal.Decimal, available decimal.Decimal) {
	f.storefront.On("ListProducts", mock.Anything).
		Return([]integration.CatalogProduct{{ExternalID: "prod-1", Title: "Camiseta"}}, nil)
	f.storefront.On("ListVariants", mock.Anything, "prod-1").
		Return([]integration.CatalogVariant{{
			ExternalID:      "var-1",
			Title:           "Camiseta / M",
			SKU:             "CAM-M",
			Price:           price,
			InventoryItemID: "item-1",
		}}, nil)
	f.storefront.On("ListInventoryLevels", mock.Anything, "item-1").
		Return([]integration.InventoryLevel{{
			LocationExternalID: "loc-1",
			LocationName:       "Bodega Norte",
			Available:          available,
		}}, nil)
}

// =============================================================================
// Tests
// =============================================================================

func TestSnapshotSync_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("first run inserts everything and seeds the stock ledger", func(t *testing.T) {
		f := newSyncFixture()
		f.expectCatalog(decimal.NewFromInt(59500), decimal.NewFromInt(50))

		report, err := f.sync.Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, report.ProductsInserted)
		assert.Equal(t, 1, report.VariantsInserted)
		assert.Equal(t, 1, report.WarehousesInserted)
		assert.Equal(t, 1, report.PriceChanges)
		assert.Equal(t, 1, report.MovementsAppended)

		require.Len(t, f.movements.records, 1)
		assert.True(t, f.movements.records[0].Quantity.Equal(decimal.NewFromInt(50)))
		assert.Equal(t, inventory.ReasonSnapshotSync, f.movements.records[0].Reason)
	})

	t.Run("appends the delta between remote quantity and recorded movements", func(t *testing.T) {
		f := newSyncFixture()
		f.expectCatalog(decimal.NewFromInt(59500), decimal.NewFromInt(50))

		// seed: variant and warehouse already known, movements sum to 30
		variantID := uuid.New()
		warehouseID := uuid.New()
		f.catalog.products["prod-1"] = uuid.New()
		f.catalog.variants["var-1"] = variantID
		f.catalog.warehouses["loc-1"] = warehouseID
		f.prices.latest[variantID] = decimal.NewFromInt(59500)
		pair := inventory.MovementPair{VariantID: variantID, WarehouseID: warehouseID}
		f.movements.sums[pair] = decimal.NewFromInt(30)

		report, err := f.sync.Run(ctx)

		require.NoError(t, err)
		assert.Zero(t, report.ProductsInserted)
		assert.Zero(t, report.VariantsInserted)
		assert.Zero(t, report.WarehousesInserted)
		assert.Zero(t, report.PriceChanges)
		assert.Equal(t, 1, report.MovementsAppended)
		require.Len(t, f.movements.records, 1)
		assert.True(t, f.movements.records[0].Quantity.Equal(decimal.NewFromInt(20)),
			"got %s", f.movements.records[0].Quantity)
	})

	t.Run("appends nothing when the ledger already matches", func(t *testing.T) {
		f := newSyncFixture()
		f.expectCatalog(decimal.NewFromInt(59500), decimal.NewFromInt(50))

		variantID := uuid.New()
		warehouseID := uuid.New()
		f.catalog.products["prod-1"] = uuid.New()
		f.catalog.variants["var-1"] = variantID
		f.catalog.warehouses["loc-1"] = warehouseID
		f.prices.latest[variantID] = decimal.NewFromInt(59500)
		pair := inventory.MovementPair{VariantID: variantID, WarehouseID: warehouseID}
		f.movements.sums[pair] = decimal.NewFromInt(50)

		report, err := f.sync.Run(ctx)

		require.NoError(t, err)
		assert.Zero(t, report.MovementsAppended)
		assert.Empty(t, f.movements.records)
	})

	t.Run("negative delta is appended when remote stock shrank", func(t *testing.T) {
		f := newSyncFixture()
		f.expectCatalog(decimal.NewFromInt(59500), decimal.NewFromInt(10))

		variantID := uuid.New()
		warehouseID := uuid.New()
		f.catalog.products["prod-1"] = uuid.New()
		f.catalog.variants["var-1"] = variantID
		f.catalog.warehouses["loc-1"] = warehouseID
		f.prices.latest[variantID] = decimal.NewFromInt(59500)
		pair := inventory.MovementPair{VariantID: variantID, WarehouseID: warehouseID}
		f.movements.sums[pair] = decimal.NewFromInt(25)

		_, err := f.sync.Run(ctx)

		require.NoError(t, err)
		require.Len(t, f.movements.records, 1)
		assert.True(t, f.movements.records[0].Quantity.Equal(decimal.NewFromInt(-15)))
	})

	t.Run("records a price change only when the price moved", func(t *testing.T) {
		f := newSyncFixture()
		f.expectCatalog(decimal.NewFromInt(63000), decimal.NewFromInt(50))

		variantID := uuid.New()
		warehouseID := uuid.New()
		f.catalog.products["prod-1"] = uuid.New()
		f.catalog.variants["var-1"] = variantID
		f.catalog.warehouses["loc-1"] = warehouseID
		f.prices.latest[variantID] = decimal.NewFromInt(59500)
		pair := inventory.MovementPair{VariantID: variantID, WarehouseID: warehouseID}
		f.movements.sums[pair] = decimal.NewFromInt(50)

		report, err := f.sync.Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, report.PriceChanges)
		require.Len(t, f.prices.records, 1)
		assert.True(t, f.prices.records[0].Price.Equal(decimal.NewFromInt(63000)))
		assert.Equal(t, variantID, f.prices.records[0].VariantID)
	})

	t.Run("second identical run writes nothing", func(t *testing.T) {
		f := newSyncFixture()
		f.expectCatalog(decimal.NewFromInt(59500), decimal.NewFromInt(50))

		_, err := f.sync.Run(ctx)
		require.NoError(t, err)

		report, err := f.sync.Run(ctx)
		require.NoError(t, err)

		assert.Zero(t, report.ProductsInserted)
		assert.Zero(t, report.VariantsInserted)
		assert.Zero(t, report.WarehousesInserted)
		assert.Zero(t, report.PriceChanges)
		assert.Zero(t, report.MovementsAppended)
	})

	t.Run("storefront failure aborts the run", func(t *testing.T) {
		f := newSyncFixture()
		f.storefront.On("ListProducts", mock.Anything).
			Return(nil, integration.ErrProviderUnavailable)

		_, err := f.sync.Run(ctx)

		assert.ErrorIs(t, err, integration.ErrProviderUnavailable)
	})
}
