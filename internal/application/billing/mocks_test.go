package billing

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/ledgersync/backend/internal/domain/billing"
	"github.com/ledgersync/backend/internal/domain/integration"
)

// =============================================================================
// Mock Gateways
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

type MockLedgerGateway struct {
	mock.Mock
}

func (m *MockLedgerGateway) FindContactByIdentification(ctx context.Context, identification string) (*integration.Contact, error) {
	args := m.Called(ctx, identification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Contact), args.Error(1)
}

func (m *MockLedgerGateway) CreateContact(ctx context.Context, contact *integration.Contact) (*integration.Contact, error) {
	args := m.Called(ctx, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Contact), args.Error(1)
}

func (m *MockLedgerGateway) UpdateContact(ctx context.Context, contact *integration.Contact) (*integration.Contact, error) {
	args := m.Called(ctx, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Contact), args.Error(1)
}

func (m *MockLedgerGateway) SearchCity(ctx context.Context, name string) (*integration.City, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.City), args.Error(1)
}

func (m *MockLedgerGateway) CreateInvoice(ctx context.Context, draft *integration.InvoiceDraft) (*integration.Invoice, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Invoice), args.Error(1)
}

func (m *MockLedgerGateway) GetInvoice(ctx context.Context, invoiceID string) (*integration.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Invoice), args.Error(1)
}

func (m *MockLedgerGateway) FindInvoiceByConcept(ctx context.Context, concept string) (*integration.Invoice, error) {
	args := m.Called(ctx, concept)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Invoice), args.Error(1)
}

func (m *MockLedgerGateway) PostInvoice(ctx context.Context, invoiceID string) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

type MockDeferredPaymentGateway struct {
	mock.Mock
}

func (m *MockDeferredPaymentGateway) TransactionsByPaymentID(ctx context.Context, paymentID string) ([]integration.DeferredTransaction, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.DeferredTransaction), args.Error(1)
}

// =============================================================================
// In-memory tracking repository
// =============================================================================

// trackingStore is an in-memory OrderTrackingRepository. It copies records on
// every boundary crossing the way a database read/write would, so tests see
// the same staleness a real run would.
type trackingStore struct {
	mu      sync.Mutex
	records map[string]billing.OrderTracking
	updates int
}

func newTrackingStore() *trackingStore {
	return &trackingStore{records: make(map[string]billing.OrderTracking)}
}

func (s *trackingStore) FindByNumber(ctx context.Context, number string) (*billing.OrderTracking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[number]
	if !ok {
		return nil, billing.ErrTrackingNotFound
	}
	copied := record
	return &copied, nil
}

func (s *trackingStore) CreateIfAbsent(ctx context.Context, record *billing.OrderTracking) (*billing.OrderTracking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.records[record.Number]; ok {
		copied := existing
		return &copied, nil
	}
	s.records[record.Number] = *record
	copied := *record
	return &copied, nil
}

func (s *trackingStore) Update(ctx context.Context, record *billing.OrderTracking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Number] = *record
	s.updates++
	return nil
}

func (s *trackingStore) FindRetryable(ctx context.Context, limit int) ([]billing.OrderTracking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []billing.OrderTracking
	for _, record := range s.records {
		if !record.Posted && record.StatusLog != "" && record.RetriesRemaining > 0 {
			out = append(out, record)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// seed stores a record directly, bypassing CreateIfAbsent
func (s *trackingStore) seed(record *billing.OrderTracking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Number] = *record
}

// get returns the stored record for assertions
func (s *trackingStore) get(number string) billing.OrderTracking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[number]
}

// setInvoice mutates the stored record, simulating a concurrent run winning
// the invoice-create race
func (s *trackingStore) setInvoice(number, invoiceID, invoiceNumber string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.records[number]
	record.InvoiceID = &invoiceID
	record.InvoiceNumber = &invoiceNumber
	s.records[number] = record
}
