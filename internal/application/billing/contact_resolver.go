package billing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ledgersync/backend/internal/domain/integration"
	"github.com/ledgersync/backend/internal/infrastructure/logger"
)

const (
	identificationMinDigits = 5
	identificationMaxDigits = 10
)

// ErrMissingIdentification indicates neither order address carries a usable
// tax identification
var ErrMissingIdentification = errors.New("billing: order has no valid tax identification")

// IsValidIdentification reports whether the string is a tax identification of
// acceptable length (5 to 10 digits inclusive)
func IsValidIdentification(s string) bool {
	if len(s) < identificationMinDigits || len(s) > identificationMaxDigits {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ResolveIdentification derives the customer's tax identification from the
// order: the billing address' embedded identifier wins, the shipping address'
// is the fallback. Returns ErrMissingIdentification when neither is valid.
func ResolveIdentification(order *integration.StorefrontOrder) (string, error) {
	if order.Billing != nil && IsValidIdentification(order.Billing.Identification) {
		return order.Billing.Identification, nil
	}
	if order.Shipping != nil && IsValidIdentification(order.Shipping.Identification) {
		return order.Shipping.Identification, nil
	}
	return "", ErrMissingIdentification
}

// ---------------------------------------------------------------------------
// ContactResolver
// ---------------------------------------------------------------------------

// ContactResolver finds or creates the ledger counterparty an invoice bills.
// An existing record that already carries the customer role and a usable
// address is reused untouched; anything else gets a fresh address built from
// the order and is created or edited accordingly.
type ContactResolver struct {
	ledger integration.LedgerGateway
}

// NewContactResolver creates a contact resolver on top of the ledger gateway
func NewContactResolver(ledger integration.LedgerGateway) *ContactResolver {
	return &ContactResolver{ledger: ledger}
}

// Resolve returns the ledger contact for the identification, creating or
// editing one from the order's data when the ledger has no reusable record
func (r *ContactResolver) Resolve(ctx context.Context, identification string, order *integration.StorefrontOrder) (*integration.Contact, error) {
	existing, err := r.ledger.FindContactByIdentification(ctx, identification)
	switch {
	case err == nil:
		if existing.HasRole(integration.RoleCustomer) && existing.Address.IsUsable() {
			return existing, nil
		}
	case errors.Is(err, integration.ErrContactNotFound):
		existing = nil
	default:
		return nil, err
	}

	city, err := r.resolveCity(ctx, order)
	if err != nil {
		return nil, err
	}

	address := &integration.ContactAddress{
		Lines:  addressLines(order),
		CityID: city.ID,
	}
	name := NormalizeCustomerName(order.CustomerName)

	if existing == nil {
		created, err := r.ledger.CreateContact(ctx, &integration.Contact{
			Identification: identification,
			Name:           name,
			Roles:          []integration.ContactRole{integration.RoleCustomer},
			Address:        address,
		})
		if err != nil {
			return nil, fmt.Errorf("create contact %s: %w", identification, err)
		}
		return created, nil
	}

	if !existing.HasRole(integration.RoleCustomer) {
		existing.Roles = append(existing.Roles, integration.RoleCustomer)
	}
	if !existing.Address.IsUsable() {
		existing.Address = address
	}
	if existing.Name == (integration.PersonName{}) {
		existing.Name = name
	}

	updated, err := r.ledger.UpdateContact(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("update contact %s: %w", identification, err)
	}
	return updated, nil
}

// resolveCity tries the four city search strategies in order: billing city,
// shipping city, billing region, shipping region. Every failure is collected;
// when all four fail the aggregate carries them all.
func (r *ContactResolver) resolveCity(ctx context.Context, order *integration.StorefrontOrder) (*integration.City, error) {
	type strategy struct {
		label string
		term  string
	}

	var strategies []strategy
	if order.Billing != nil {
		strategies = append(strategies, strategy{"billing city", order.Billing.City})
	}
	if order.Shipping != nil {
		strategies = append(strategies, strategy{"shipping city", order.Shipping.City})
	}
	if order.Billing != nil {
		strategies = append(strategies, strategy{"billing region", order.Billing.Province})
	}
	if order.Shipping != nil {
		strategies = append(strategies, strategy{"shipping region", order.Shipping.Province})
	}

	var failures []error
	for _, s := range strategies {
		if s.term == "" {
			failures = append(failures, fmt.Errorf("%s: empty", s.label))
			continue
		}
		city, err := r.ledger.SearchCity(ctx, s.term)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s %q: %w", s.label, s.term, err))
			continue
		}
		if len(failures) > 0 {
			logger.FromContext(ctx).Debug("city resolved after fallback",
				zap.String("strategy", s.label),
				zap.String("city_id", city.ID))
		}
		return city, nil
	}

	if len(failures) == 0 {
		failures = append(failures, errors.New("order has no addresses"))
	}
	return nil, fmt.Errorf("billing: city resolution exhausted all strategies: %w", errors.Join(failures...))
}

// addressLines builds the ledger street lines from the order's formatted
// address, dropping the first line because it encodes the identification
func addressLines(order *integration.StorefrontOrder) []string {
	var formatted []string
	if order.Billing != nil && len(order.Billing.Formatted) > 0 {
		formatted = order.Billing.Formatted
	} else if order.Shipping != nil {
		formatted = order.Shipping.Formatted
	}
	if len(formatted) <= 1 {
		return nil
	}
	return formatted[1:]
}
