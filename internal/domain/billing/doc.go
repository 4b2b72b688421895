// Package billing provides domain models for converting paid storefront
// orders into posted ledger invoices.
//
// The central aggregate is OrderTracking, one record per order number. It
// remembers how far an order got through the pipeline (payment observed,
// invoice created, invoice posted) so that webhook redeliveries, manual
// retries and the periodic sweep all converge on the same invoice instead
// of creating duplicates.
//
// State is derived, not stored: State() reads the flags and the retry
// budget and reports RECEIVED, IDENTIFIED, INVOICED, POSTED or BLOCKED.
package billing
