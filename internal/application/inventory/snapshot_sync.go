package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ledgersync/backend/internal/domain/integration"
	"github.com/ledgersync/backend/internal/domain/inventory"
	"github.com/ledgersync/backend/internal/infrastructure/logger"
)

// SyncReport summarizes what one snapshot run wrote
type SyncReport struct {
	// ProductsSeen is the number of products pulled from the storefront
	ProductsSeen int
	// ProductsInserted counts products seen for the first time
	ProductsInserted int
	// VariantsSeen is the number of variants pulled across all products
	VariantsSeen int
	// VariantsInserted counts variants seen for the first time
	VariantsInserted int
	// WarehousesInserted counts locations seen for the first time
	WarehousesInserted int
	// PriceChanges counts price records appended
	PriceChanges int
	// MovementsAppended counts reconciling stock deltas appended
	MovementsAppended int
}

// observedVariant carries what the pull phase learned about one variant
type observedVariant struct {
	external        integration.CatalogVariant
	productLocalID  uuid.UUID
	inventoryLevels []integration.InventoryLevel
}

// SnapshotSync mirrors the storefront catalog into the local inventory
// tables. Each run pulls products, their variants and the variants' inventory
// levels, inserts whatever entities it has not seen before, appends a price
// record per changed price, and reconciles the append-only stock ledger
// against the storefront's absolute on-hand quantities by appending the
// missing delta per (variant, warehouse) pair. Nothing is ever deleted or
// rewritten.
type SnapshotSync struct {
	storefront integration.StorefrontGateway
	catalog    inventory.CatalogRepository
	prices     inventory.PriceRepository
	movements  inventory.MovementRepository

	// now is swapped out in tests for deterministic timestamps
	now func() time.Time
}

// NewSnapshotSync creates the sync over its ports
func NewSnapshotSync(
	storefront integration.StorefrontGateway,
	catalog inventory.CatalogRepository,
	prices inventory.PriceRepository,
	movements inventory.MovementRepository,
) *SnapshotSync {
	return &SnapshotSync{
		storefront: storefront,
		catalog:    catalog,
		prices:     prices,
		movements:  movements,
		now:        time.Now,
	}
}

// Run executes one full snapshot pass
func (s *SnapshotSync) Run(ctx context.Context) (*SyncReport, error) {
	log := logger.FromContext(ctx)
	report := &SyncReport{}

	products, err := s.storefront.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	report.ProductsSeen = len(products)

	productIDs, err := s.syncProducts(ctx, products, report)
	if err != nil {
		return nil, err
	}

	observed, err := s.pullVariants(ctx, products, productIDs, report)
	if err != nil {
		return nil, err
	}

	variantIDs, err := s.syncVariants(ctx, observed, report)
	if err != nil {
		return nil, err
	}

	warehouseIDs, err := s.syncWarehouses(ctx, observed, report)
	if err != nil {
		return nil, err
	}

	if err := s.syncPrices(ctx, observed, variantIDs, report); err != nil {
		return nil, err
	}

	if err := s.syncMovements(ctx, observed, variantIDs, warehouseIDs, report); err != nil {
		return nil, err
	}

	log.Info("inventory snapshot completed",
		zap.Int("products_seen", report.ProductsSeen),
		zap.Int("products_inserted", report.ProductsInserted),
		zap.Int("variants_seen", report.VariantsSeen),
		zap.Int("variants_inserted", report.VariantsInserted),
		zap.Int("warehouses_inserted", report.WarehousesInserted),
		zap.Int("price_changes", report.PriceChanges),
		zap.Int("movements_appended", report.MovementsAppended))
	return report, nil
}

// syncProducts inserts unseen products and returns the external-to-local id
// map covering every pulled product
func (s *SnapshotSync) syncProducts(ctx context.Context, products []integration.CatalogProduct, report *SyncReport) (map[string]uuid.UUID, error) {
	externalIDs := make([]string, 0, len(products))
	for _, p := range products {
		externalIDs = append(externalIDs, p.ExternalID)
	}

	known, err := s.catalog.ProductIDsByExternalID(ctx, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("map product ids: %w", err)
	}

	var fresh []*inventory.Product
	for _, p := range products {
		if _, ok := known[p.ExternalID]; ok {
			continue
		}
		product, err := inventory.NewProduct(p.ExternalID, p.Title)
		if err != nil {
			return nil, err
		}
		fresh = append(fresh, product)
	}
	if len(fresh) > 0 {
		if err := s.catalog.InsertProducts(ctx, fresh); err != nil {
			return nil, fmt.Errorf("insert products: %w", err)
		}
		report.ProductsInserted = len(fresh)
		// re-map so later phases join against persisted rows
		known, err = s.catalog.ProductIDsByExternalID(ctx, externalIDs)
		if err != nil {
			return nil, fmt.Errorf("map product ids: %w", err)
		}
	}
	return known, nil
}

// pullVariants fetches every product's variants and each variant's inventory
// levels from the storefront
func (s *SnapshotSync) pullVariants(ctx context.Context, products []integration.CatalogProduct, productIDs map[string]uuid.UUID, report *SyncReport) ([]observedVariant, error) {
	var observed []observedVariant
	for _, p := range products {
		localID, ok := productIDs[p.ExternalID]
		if !ok {
			return nil, fmt.Errorf("product %s missing after insert", p.ExternalID)
		}

		variants, err := s.storefront.ListVariants(ctx, p.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("list variants of %s: %w", p.ExternalID, err)
		}
		report.VariantsSeen += len(variants)

		for _, v := range variants {
			levels, err := s.storefront.ListInventoryLevels(ctx, v.InventoryItemID)
			if err != nil {
				return nil, fmt.Errorf("list inventory levels of %s: %w", v.ExternalID, err)
			}
			observed = append(observed, observedVariant{
				external:        v,
				productLocalID:  localID,
				inventoryLevels: levels,
			})
		}
	}
	return observed, nil
}

// syncVariants inserts unseen variants and returns the external-to-local map
func (s *SnapshotSync) syncVariants(ctx context.Context, observed []observedVariant, report *SyncReport) (map[string]uuid.UUID, error) {
	externalIDs := make([]string, 0, len(observed))
	for _, o := range observed {
		externalIDs = append(externalIDs, o.external.ExternalID)
	}

	known, err := s.catalog.VariantIDsByExternalID(ctx, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("map variant ids: %w", err)
	}

	var fresh []*inventory.Variant
	for _, o := range observed {
		if _, ok := known[o.external.ExternalID]; ok {
			continue
		}
		variant, err := inventory.NewVariant(o.external.ExternalID, o.productLocalID, o.external.Title, o.external.SKU)
		if err != nil {
			return nil, err
		}
		fresh = append(fresh, variant)
	}
	if len(fresh) > 0 {
		if err := s.catalog.InsertVariants(ctx, fresh); err != nil {
			return nil, fmt.Errorf("insert variants: %w", err)
		}
		report.VariantsInserted = len(fresh)
		known, err = s.catalog.VariantIDsByExternalID(ctx, externalIDs)
		if err != nil {
			return nil, fmt.Errorf("map variant ids: %w", err)
		}
	}
	return known, nil
}

// syncWarehouses inserts unseen locations and returns the external-to-local map
func (s *SnapshotSync) syncWarehouses(ctx context.Context, observed []observedVariant, report *SyncReport) (map[string]uuid.UUID, error) {
	seen := make(map[string]string)
	var externalIDs []string
	for _, o := range observed {
		for _, level := range o.inventoryLevels {
			if _, ok := seen[level.LocationExternalID]; ok {
				continue
			}
			seen[level.LocationExternalID] = level.LocationName
			externalIDs = append(externalIDs, level.LocationExternalID)
		}
	}

	known, err := s.catalog.WarehouseIDsByExternalID(ctx, externalIDs)
	if err != nil {
		return nil, fmt.Errorf("map warehouse ids: %w", err)
	}

	var fresh []*inventory.Warehouse
	for _, externalID := range externalIDs {
		if _, ok := known[externalID]; ok {
			continue
		}
		warehouse, err := inventory.NewWarehouse(externalID, seen[externalID])
		if err != nil {
			return nil, err
		}
		fresh = append(fresh, warehouse)
	}
	if len(fresh) > 0 {
		if err := s.catalog.InsertWarehouses(ctx, fresh); err != nil {
			return nil, fmt.Errorf("insert warehouses: %w", err)
		}
		report.WarehousesInserted = len(fresh)
		known, err = s.catalog.WarehouseIDsByExternalID(ctx, externalIDs)
		if err != nil {
			return nil, fmt.Errorf("map warehouse ids: %w", err)
		}
	}
	return known, nil
}

// syncPrices appends one price record per variant whose remote price differs
// from the latest recorded one. Unchanged prices leave no trace.
func (s *SnapshotSync) syncPrices(ctx context.Context, observed []observedVariant, variantIDs map[string]uuid.UUID, report *SyncReport) error {
	localIDs := make([]uuid.UUID, 0, len(observed))
	for _, o := range observed {
		if id, ok := variantIDs[o.external.ExternalID]; ok {
			localIDs = append(localIDs, id)
		}
	}

	latest, err := s.prices.LatestPrices(ctx, localIDs)
	if err != nil {
		return fmt.Errorf("load latest prices: %w", err)
	}

	recordedAt := s.now()
	var fresh []*inventory.PriceRecord
	for _, o := range observed {
		localID, ok := variantIDs[o.external.ExternalID]
		if !ok {
			return fmt.Errorf("variant %s missing after insert", o.external.ExternalID)
		}
		if last, ok := latest[localID]; ok && last.Equal(o.external.Price) {
			continue
		}
		record, err := inventory.NewPriceRecord(localID, o.external.Price, recordedAt)
		if err != nil {
			return err
		}
		fresh = append(fresh, record)
	}

	if len(fresh) > 0 {
		if err := s.prices.InsertPriceRecords(ctx, fresh); err != nil {
			return fmt.Errorf("insert price records: %w", err)
		}
		report.PriceChanges = len(fresh)
	}
	return nil
}

// syncMovements reconciles the stock ledger: for every (variant, warehouse)
// pair it appends one movement carrying the difference between the remote
// on-hand quantity and the sum of existing movements, when non-zero
func (s *SnapshotSync) syncMovements(ctx context.Context, observed []observedVariant, variantIDs, warehouseIDs map[string]uuid.UUID, report *SyncReport) error {
	type target struct {
		pair   inventory.MovementPair
		remote decimal.Decimal
	}

	var targets []target
	var pairs []inventory.MovementPair
	for _, o := range observed {
		variantID, ok := variantIDs[o.external.ExternalID]
		if !ok {
			return fmt.Errorf("variant %s missing after insert", o.external.ExternalID)
		}
		for _, level := range o.inventoryLevels {
			warehouseID, ok := warehouseIDs[level.LocationExternalID]
			if !ok {
				return fmt.Errorf("warehouse %s missing after insert", level.LocationExternalID)
			}
			pair := inventory.MovementPair{VariantID: variantID, WarehouseID: warehouseID}
			targets = append(targets, target{pair: pair, remote: level.Available})
			pairs = append(pairs, pair)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	sums, err := s.movements.SumByPair(ctx, pairs)
	if err != nil {
		return fmt.Errorf("sum movements: %w", err)
	}

	movedAt := s.now()
	var fresh []*inventory.StockMovement
	for _, t := range targets {
		delta := t.remote.Sub(sums[t.pair])
		if delta.IsZero() {
			continue
		}
		movement, err := inventory.NewStockMovement(t.pair.VariantID, t.pair.WarehouseID, delta, inventory.ReasonSnapshotSync, movedAt)
		if err != nil {
			return err
		}
		fresh = append(fresh, movement)
	}

	if len(fresh) > 0 {
		if err := s.movements.InsertMovements(ctx, fresh); err != nil {
			return fmt.Errorf("insert movements: %w", err)
		}
		report.MovementsAppended = len(fresh)
	}
	return nil
}
