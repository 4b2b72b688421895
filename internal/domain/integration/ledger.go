package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Ledger Value Objects
// ---------------------------------------------------------------------------

// ContactRole is a role a ledger counterparty can carry
type ContactRole string

const (
	// RoleCustomer marks a counterparty as a customer
	RoleCustomer ContactRole = "customer"
	// RoleSupplier marks a counterparty as a supplier
	RoleSupplier ContactRole = "supplier"
)

// String returns the string representation of ContactRole
func (r ContactRole) String() string {
	return string(r)
}

// PersonName is a normalized person name split the way the ledger expects
type PersonName struct {
	// FirstName is the first given name
	FirstName string
	// SecondName is the second given name, empty when absent
	SecondName string
	// Surname is the family name (possibly multi-word)
	Surname string
}

// ContactAddress is a counterparty's primary address in the ledger
type ContactAddress struct {
	// Lines are the street address lines
	Lines []string
	// CityID is the ledger's city identifier
	CityID string
}

// IsUsable reports whether the address is complete enough to invoice against
func (a *ContactAddress) IsUsable() bool {
	return a != nil && a.CityID != "" && len(a.Lines) > 0
}

// Contact is a counterparty record in the ledger
type Contact struct {
	// ID is the ledger's contact id (empty before creation)
	ID string
	// Identification is the tax identification (the lookup key)
	Identification string
	// Name is the contact's person name
	Name PersonName
	// Roles are the roles the contact carries
	Roles []ContactRole
	// Address is the primary address, nil when the ledger has none
	Address *ContactAddress
}

// HasRole reports whether the contact carries the given role
func (c *Contact) HasRole(role ContactRole) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// City is a city record in the ledger
type City struct {
	// ID is the ledger's city identifier
	ID string
	// Name is the city name
	Name string
	// Region is the region/department the city belongs to
	Region string
}

// PaymentTerm selects how an invoice is to be paid
type PaymentTerm string

const (
	// PaymentTermCash is the default immediate payment term
	PaymentTermCash PaymentTerm = "CASH"
	// PaymentTermCredit is the deferred payment term
	PaymentTermCredit PaymentTerm = "CREDIT"
)

// String returns the string representation of PaymentTerm
func (p PaymentTerm) String() string {
	return string(p)
}

// InvoiceLine is one ledger line of an invoice draft
type InvoiceLine struct {
	// Description is the line description shown on the invoice
	Description string
	// Quantity is the invoiced quantity
	Quantity decimal.Decimal
	// UnitPrice is the unit price with VAT backed out, rounded to 2 decimals
	UnitPrice decimal.Decimal
	// DiscountPercent is the rounded integer discount, zero when absent
	DiscountPercent int
	// VATRate is the line's value-added tax rate
	VATRate decimal.Decimal
}

// InvoiceDraft is the request to create an invoice in the ledger
type InvoiceDraft struct {
	// Concept is the deterministic label derived from the order number; it is
	// what allows re-finding the invoice when the create response was lost
	Concept string
	// ContactID is the ledger contact the invoice bills
	ContactID string
	// Date is the invoice date
	Date time.Time
	// PaymentTerm selects cash or credit settlement
	PaymentTerm PaymentTerm
	// Lines are the invoice lines
	Lines []InvoiceLine
}

// Invoice is an invoice as stored by the ledger
type Invoice struct {
	// ID is the ledger's invoice id
	ID string
	// Number is the human-facing invoice number
	Number string
	// Concept is the invoice's concept label
	Concept string
	// Posted reports whether the invoice has been accounted
	Posted bool
}

// ---------------------------------------------------------------------------
// LedgerGateway Port
// ---------------------------------------------------------------------------

// LedgerGateway is the port to the accounting/ledger provider. All operations
// are idempotent lookups or single-shot writes; the reconciler supplies the
// retry discipline.
type LedgerGateway interface {
	// FindContactByIdentification fetches a counterparty by tax identification.
	// Returns ErrContactNotFound when the ledger has none.
	FindContactByIdentification(ctx context.Context, identification string) (*Contact, error)

	// CreateContact creates a counterparty and returns it with its assigned id
	CreateContact(ctx context.Context, contact *Contact) (*Contact, error)

	// UpdateContact edits an existing counterparty (used to add the customer role)
	UpdateContact(ctx context.Context, contact *Contact) (*Contact, error)

	// SearchCity finds a city by city or region name.
	// Returns ErrCityNotFound when no match exists.
	SearchCity(ctx context.Context, name string) (*City, error)

	// CreateInvoice submits an invoice draft. A returned ErrTimeout means the
	// ledger may or may not have created it; callers must reconcile via
	// FindInvoiceByConcept rather than retry.
	CreateInvoice(ctx context.Context, draft *InvoiceDraft) (*Invoice, error)

	// GetInvoice fetches an invoice by its ledger id
	GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error)

	// FindInvoiceByConcept looks an invoice up by its concept label.
	// Returns ErrInvoiceNotFound when none matches.
	FindInvoiceByConcept(ctx context.Context, concept string) (*Invoice, error)

	// PostInvoice requests the invoice be accounted/posted into the books
	PostInvoice(ctx context.Context, invoiceID string) error
}
