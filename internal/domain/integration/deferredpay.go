package integration

import "context"

// ---------------------------------------------------------------------------
// Deferred-Payment Provider
// ---------------------------------------------------------------------------

// DeferredTransactionKind classifies a buy-now-pay-later transaction
type DeferredTransactionKind string

const (
	// DeferredKindPayLater is the provider's deferred-payment product
	DeferredKindPayLater DeferredTransactionKind = "PAY_LATER"
	// DeferredKindImmediate is a regular up-front payment
	DeferredKindImmediate DeferredTransactionKind = "IMMEDIATE"
)

// DeferredTransaction is one transaction reported by the BNPL provider
type DeferredTransaction struct {
	// ID is the provider's transaction id
	ID string
	// Kind classifies the transaction
	Kind DeferredTransactionKind
}

// AllDeferred reports whether every transaction is of the deferred kind.
// An empty list is not considered deferred.
func AllDeferred(transactions []DeferredTransaction) bool {
	if len(transactions) == 0 {
		return false
	}
	for _, tx := range transactions {
		if tx.Kind != DeferredKindPayLater {
			return false
		}
	}
	return true
}

// DeferredPaymentGateway is the port to the buy-now-pay-later provider. The
// adapter owns session-token authentication and transparently re-authenticates
// once on an authorization failure, retrying the call exactly once.
type DeferredPaymentGateway interface {
	// TransactionsByPaymentID lists the provider's transactions for a
	// storefront payment id
	TransactionsByPaymentID(ctx context.Context, paymentID string) ([]DeferredTransaction, error)
}
