package billing

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ledgersync/backend/internal/domain/integration"
	"github.com/ledgersync/backend/internal/infrastructure/logger"
)

// BNPLAuditTag is attached to an order whose payment term was switched to
// credit because the deferred-payment provider reported it as pay-later
const BNPLAuditTag = "pago-diferido"

// accentFolder strips combining marks so tag matching treats "crédito" and
// "credito" as the same word
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldAccents lowercases the string and removes its accents
func foldAccents(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// tagsContain reports whether any tag contains the marker, accent-insensitively
func tagsContain(tags []string, marker string) bool {
	needle := foldAccents(marker)
	if needle == "" {
		return false
	}
	for _, tag := range tags {
		if strings.Contains(foldAccents(tag), needle) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// PaymentTermResolver
// ---------------------------------------------------------------------------

// PaymentTermResolver decides whether an invoice settles in cash or on credit.
// The merchant's credit tag decides by default; the deferred-payment provider
// can override a cash decision when every transaction behind the order's
// payment is of its pay-later kind.
type PaymentTermResolver struct {
	deferred    integration.DeferredPaymentGateway
	gatewayName string
	creditTag   string
}

// NewPaymentTermResolver creates a payment term resolver. The deferred gateway
// may be nil when no BNPL provider is configured.
func NewPaymentTermResolver(deferred integration.DeferredPaymentGateway, gatewayName, creditTag string) *PaymentTermResolver {
	return &PaymentTermResolver{
		deferred:    deferred,
		gatewayName: gatewayName,
		creditTag:   creditTag,
	}
}

// Resolve returns the payment term for the order and whether the BNPL provider
// overrode the tag-based decision (the caller tags the order for audit when it
// did). A provider lookup failure keeps the tag-based term; getting the term
// slightly wrong is recoverable in the ledger, failing the whole invoice is not.
func (r *PaymentTermResolver) Resolve(ctx context.Context, order *integration.StorefrontOrder) (integration.PaymentTerm, bool) {
	term := integration.PaymentTermCash
	if tagsContain(order.Tags, r.creditTag) {
		term = integration.PaymentTermCredit
	}

	if term == integration.PaymentTermCredit || r.deferred == nil {
		return term, false
	}

	paymentID := r.deferredPaymentID(order)
	if paymentID == "" {
		return term, false
	}

	transactions, err := r.deferred.TransactionsByPaymentID(ctx, paymentID)
	if err != nil {
		logger.FromContext(ctx).Warn("deferred payment lookup failed, keeping tag-based term",
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return term, false
	}

	if integration.AllDeferred(transactions) {
		return integration.PaymentTermCredit, true
	}
	return term, false
}

// deferredPaymentID finds the payment id of the order's transaction on the
// configured BNPL gateway, empty when the order was not paid through it
func (r *PaymentTermResolver) deferredPaymentID(order *integration.StorefrontOrder) string {
	for _, tx := range order.Transactions {
		if strings.EqualFold(tx.Gateway, r.gatewayName) && tx.PaymentID != "" {
			return tx.PaymentID
		}
	}
	return ""
}
