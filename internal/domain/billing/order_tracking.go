package billing

import (
	"fmt"

	"github.com/ledgersync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Reconciliation States
// ---------------------------------------------------------------------------

// ReconcileState represents how far an order has progressed through the
// order-to-invoice pipeline
type ReconcileState string

const (
	// StateReceived indicates the order has been seen but nothing resolved yet
	StateReceived ReconcileState = "RECEIVED"
	// StateIdentified indicates a valid tax identification has been resolved
	StateIdentified ReconcileState = "IDENTIFIED"
	// StateInvoiced indicates an invoice exists in the ledger for this order
	StateInvoiced ReconcileState = "INVOICED"
	// StatePosted indicates the invoice has been accounted/posted (terminal success)
	StatePosted ReconcileState = "POSTED"
	// StateBlocked indicates the order cannot advance without external change
	StateBlocked ReconcileState = "BLOCKED"
)

// String returns the string representation of ReconcileState
func (s ReconcileState) String() string {
	return string(s)
}

// IsTerminal returns true if no further pipeline step applies
func (s ReconcileState) IsTerminal() bool {
	return s == StatePosted || s == StateBlocked
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrTrackingNotFound indicates no tracking record exists for the order number
	ErrTrackingNotFound = shared.NewDomainError("NOT_FOUND", "billing: tracking record not found")
	// ErrInvoiceAlreadySet indicates an attempt to reassign a write-once invoice id
	ErrInvoiceAlreadySet = shared.NewDomainError("INVALID_STATE", "billing: invoice id is write-once and already set")
	// ErrEmptyOrderNumber indicates a tracking record without a business key
	ErrEmptyOrderNumber = shared.NewDomainError("VALIDATION", "billing: order number cannot be empty")
)

// ---------------------------------------------------------------------------
// OrderTracking
// ---------------------------------------------------------------------------

// OrderTracking is the persisted record of a storefront order's progress through
// the invoicing pipeline. One record exists per order number; the number is the
// immutable business key. InvoiceID is write-once and Posted transitions only
// false to true, which is what makes webhook redelivery and concurrent sweep
// runs safe without locking.
type OrderTracking struct {
	shared.BaseEntity
	// Number is the order's business number on the storefront (unique)
	Number string `gorm:"type:varchar(50);not null;uniqueIndex:idx_order_tracking_number"`
	// Paid records whether the order was fully paid when last checked
	Paid bool `gorm:"not null;default:false"`
	// InvoiceID is the ledger invoice id; nil means "not yet invoiced"
	InvoiceID *string `gorm:"type:varchar(50)"`
	// InvoiceNumber is the human-facing invoice number assigned by the ledger
	InvoiceNumber *string `gorm:"type:varchar(50)"`
	// Posted records whether the invoice has been accounted in the ledger
	Posted bool `gorm:"not null;default:false"`
	// StatusLog holds the last error or block reason; empty after success
	StatusLog string `gorm:"type:text"`
	// RetriesRemaining is the sweep retry budget; decremented only by the sweep
	RetriesRemaining int `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderTracking) TableName() string {
	return "order_tracking"
}

// NewOrderTracking creates a tracking record for an order seen for the first time
func NewOrderTracking(number string, retryBudget int) (*OrderTracking, error) {
	if number == "" {
		return nil, ErrEmptyOrderNumber
	}
	return &OrderTracking{
		BaseEntity:       shared.NewBaseEntity(),
		Number:           number,
		RetriesRemaining: retryBudget,
	}, nil
}

// State derives the pipeline state from the persisted fields. Blocked is not a
// persisted flag: a record with a status log and no retry budget is blocked,
// anything else resumes from where its fields place it.
func (t *OrderTracking) State() ReconcileState {
	switch {
	case t.Posted:
		return StatePosted
	case t.InvoiceID != nil:
		return StateInvoiced
	case t.StatusLog != "" && t.RetriesRemaining <= 0:
		return StateBlocked
	case t.Paid:
		return StateIdentified
	default:
		return StateReceived
	}
}

// MarkPaid records that the order is fully paid. Monotonic: once true it stays true.
func (t *OrderTracking) MarkPaid() {
	t.Paid = true
}

// SetInvoice records the ledger invoice id and number. The invoice id is
// write-once; calling this on a record that already has one fails.
func (t *OrderTracking) SetInvoice(invoiceID, invoiceNumber string) error {
	if t.InvoiceID != nil {
		return ErrInvoiceAlreadySet
	}
	if invoiceID == "" {
		return shared.NewDomainError("VALIDATION", "billing: invoice id cannot be empty")
	}
	t.InvoiceID = &invoiceID
	t.InvoiceNumber = &invoiceNumber
	return nil
}

// HasInvoice returns true once an invoice id has been recorded
func (t *OrderTracking) HasInvoice() bool {
	return t.InvoiceID != nil
}

// MarkPosted records that the invoice was accounted and clears the status log
func (t *OrderTracking) MarkPosted() {
	t.Posted = true
	t.StatusLog = ""
}

// RecordFailure persists the failure text so the sweep can retry later
func (t *OrderTracking) RecordFailure(reason string) {
	t.StatusLog = reason
}

// Block records a blocking reason and exhausts the retry budget so the sweep
// stops picking the record up
func (t *OrderTracking) Block(reason string) {
	t.StatusLog = reason
	t.RetriesRemaining = 0
}

// ConsumeRetry decrements the retry budget. Only the sweep calls this;
// webhook-triggered runs do not consume budget.
func (t *OrderTracking) ConsumeRetry() {
	if t.RetriesRemaining > 0 {
		t.RetriesRemaining--
	}
}

// ConceptString returns the deterministic invoice concept label for this order.
// It is used to re-find an invoice whose creation response was lost to a timeout.
func (t *OrderTracking) ConceptString() string {
	return ConceptForOrder(t.Number)
}

// ConceptForOrder builds the deterministic concept label for an order number
func ConceptForOrder(number string) string {
	return fmt.Sprintf("Pedido online #%s", number)
}
