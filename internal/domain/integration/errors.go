package integration

import "errors"

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	// Transport-level errors
	ErrProviderUnavailable = errors.New("integration: provider temporarily unavailable")
	ErrRequestFailed       = errors.New("integration: provider request failed")
	ErrInvalidResponse     = errors.New("integration: invalid provider response")
	ErrAuthFailed          = errors.New("integration: provider authentication failed")

	// ErrTimeout indicates a request that may or may not have been applied by
	// the provider. Every call site that can observe it defines a fallback;
	// it is never blindly retried.
	ErrTimeout = errors.New("integration: provider request timed out")

	// Lookup errors
	ErrOrderNotFound   = errors.New("integration: storefront order not found")
	ErrContactNotFound = errors.New("integration: ledger contact not found")
	ErrCityNotFound    = errors.New("integration: ledger city not found")
	ErrInvoiceNotFound = errors.New("integration: ledger invoice not found")
)
