package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgersync/backend/internal/domain/billing"
	"github.com/ledgersync/backend/internal/domain/integration"
	"github.com/ledgersync/backend/internal/domain/shared"
	"github.com/ledgersync/backend/internal/infrastructure/logger"
)

// ReconcilerConfig carries the tunables of the order-to-invoice pipeline
type ReconcilerConfig struct {
	// RetryBudget is the sweep retry budget given to new tracking records
	RetryBudget int
	// InvoiceLookupDelay is how long to wait after an invoice-create timeout
	// before looking the invoice up by concept
	InvoiceLookupDelay time.Duration
	// DoNotInvoiceTag blocks tagged orders from ever being invoiced
	DoNotInvoiceTag string
}

// OrderReconciler drives one order through RECEIVED, IDENTIFIED, INVOICED and
// POSTED. Each run resumes from wherever the tracking record's fields place
// the order; the write-once invoice id and the monotonic posted flag are what
// make redelivered webhooks and concurrent sweep runs safe.
//
// Pipeline failures never escape Process: they are written to the tracking
// record's status log for the sweep to retry. Only a failure to load or create
// the tracking record itself is returned as an error.
type OrderReconciler struct {
	trackings  billing.OrderTrackingRepository
	storefront integration.StorefrontGateway
	ledger     integration.LedgerGateway
	contacts   *ContactResolver
	terms      *PaymentTermResolver
	config     ReconcilerConfig

	// sleep is swapped out in tests to avoid real waits
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrderReconciler creates the pipeline over its ports
func NewOrderReconciler(
	trackings billing.OrderTrackingRepository,
	storefront integration.StorefrontGateway,
	ledger integration.LedgerGateway,
	contacts *ContactResolver,
	terms *PaymentTermResolver,
	config ReconcilerConfig,
) *OrderReconciler {
	return &OrderReconciler{
		trackings:  trackings,
		storefront: storefront,
		ledger:     ledger,
		contacts:   contacts,
		terms:      terms,
		config:     config,
		sleep:      sleepContext,
	}
}

// Process runs the pipeline for one order number. force bypasses the
// do-not-invoice tag check and re-processes blocked records.
//
// The returned tracking record reflects the state after the run. The error is
// non-nil only when the tracking record could not be loaded, created or
// persisted; everything else lands in the record's status log.
func (r *OrderReconciler) Process(ctx context.Context, number string, force bool) (*billing.OrderTracking, error) {
	ctx, log := logger.WithOrderNumber(ctx, logger.FromContext(ctx), number)

	tracking, err := r.acquireTracking(ctx, number)
	if err != nil {
		log.Error("failed to acquire tracking record", zap.Error(err))
		return nil, err
	}

	state := tracking.State()
	if state == billing.StatePosted {
		log.Debug("order already posted, nothing to do")
		return tracking, nil
	}
	if state == billing.StateBlocked && !force {
		log.Debug("order is blocked", zap.String("reason", tracking.StatusLog))
		return tracking, nil
	}

	order, err := r.storefront.GetOrder(ctx, number)
	if err != nil {
		return tracking, r.recordFailure(ctx, tracking, fmt.Sprintf("fetch order: %v", err))
	}

	if !force && tagsContain(order.Tags, r.config.DoNotInvoiceTag) {
		tracking.Block(fmt.Sprintf("order tagged %q, not to be invoiced", r.config.DoNotInvoiceTag))
		log.Info("order blocked by do-not-invoice tag")
		return tracking, r.trackings.Update(ctx, tracking)
	}

	if !order.FullyPaid {
		return tracking, r.recordFailure(ctx, tracking,
			fmt.Sprintf("order not fully paid (financial status %s)", order.FinancialStatus))
	}
	tracking.MarkPaid()

	identification, err := ResolveIdentification(order)
	if err != nil {
		tracking.Block("missing identification: no address carries a valid 5-10 digit tax id")
		log.Warn("order blocked, missing identification")
		return tracking, r.trackings.Update(ctx, tracking)
	}

	if !tracking.HasInvoice() {
		if err := r.createInvoice(ctx, tracking, order, identification); err != nil {
			return tracking, r.recordFailure(ctx, tracking, err.Error())
		}
		if err := r.trackings.Update(ctx, tracking); err != nil {
			log.Error("failed to persist invoice id", zap.Error(err))
			return tracking, err
		}
	}

	if !tracking.Posted {
		if err := r.postInvoice(ctx, tracking); err != nil {
			return tracking, r.recordFailure(ctx, tracking, err.Error())
		}
		if err := r.trackings.Update(ctx, tracking); err != nil {
			log.Error("failed to persist posted flag", zap.Error(err))
			return tracking, err
		}
	}

	log.Info("order reconciled",
		zap.Stringp("invoice_id", tracking.InvoiceID),
		zap.Stringp("invoice_number", tracking.InvoiceNumber))
	return tracking, nil
}

// acquireTracking loads the order's tracking record, creating it on first
// sight. The unique number constraint makes concurrent first deliveries
// converge on one row.
func (r *OrderReconciler) acquireTracking(ctx context.Context, number string) (*billing.OrderTracking, error) {
	fresh, err := billing.NewOrderTracking(number, r.config.RetryBudget)
	if err != nil {
		return nil, err
	}
	tracking, err := r.trackings.CreateIfAbsent(ctx, fresh)
	if err != nil {
		return nil, err
	}
	if tracking.ID == uuid.Nil {
		return nil, fmt.Errorf("tracking record for order %s has no id after creation: %w",
			number, shared.ErrConsistency)
	}
	return tracking, nil
}

// createInvoice resolves the counterparty and lines, re-checks the idempotency
// gate, and submits the invoice. A create timeout falls back to looking the
// invoice up by its concept string instead of retrying, because the ledger may
// have created it without answering.
func (r *OrderReconciler) createInvoice(ctx context.Context, tracking *billing.OrderTracking, order *integration.StorefrontOrder, identification string) error {
	log := logger.FromContext(ctx)

	contact, err := r.contacts.Resolve(ctx, identification, order)
	if err != nil {
		return fmt.Errorf("resolve counterparty: %w", err)
	}

	term, overridden := r.terms.Resolve(ctx, order)

	// A concurrent run may have invoiced the order while we resolved the
	// counterparty. Re-check against the store immediately before creating.
	if current, err := r.trackings.FindByNumber(ctx, tracking.Number); err == nil && current.HasInvoice() {
		*tracking = *current
		log.Info("invoice created by a concurrent run, skipping create")
		return nil
	}

	draft := &integration.InvoiceDraft{
		Concept:     tracking.ConceptString(),
		ContactID:   contact.ID,
		Date:        order.CreatedAt,
		PaymentTerm: term,
		Lines:       BuildInvoiceLines(order),
	}

	invoice, err := r.ledger.CreateInvoice(ctx, draft)
	switch {
	case err == nil:
	case errors.Is(err, integration.ErrTimeout):
		invoice, err = r.findInvoiceAfterTimeout(ctx, tracking.ConceptString())
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("create invoice: %w", err)
	}

	if err := tracking.SetInvoice(invoice.ID, invoice.Number); err != nil {
		return err
	}
	log.Info("invoice created",
		zap.String("invoice_id", invoice.ID),
		zap.String("invoice_number", invoice.Number),
		zap.String("payment_term", term.String()))

	if overridden {
		if err := r.storefront.AddOrderTags(ctx, order.ID, []string{BNPLAuditTag}); err != nil {
			// the invoice exists; losing the audit tag is not worth failing over
			log.Warn("failed to attach deferred-payment audit tag", zap.Error(err))
		}
	}
	return nil
}

// findInvoiceAfterTimeout waits out the configured delay and looks the invoice
// up by concept. Found means the create landed despite the lost response.
func (r *OrderReconciler) findInvoiceAfterTimeout(ctx context.Context, concept string) (*integration.Invoice, error) {
	log := logger.FromContext(ctx)
	log.Warn("invoice create timed out, reconciling by concept lookup",
		zap.Duration("delay", r.config.InvoiceLookupDelay))

	if err := r.sleep(ctx, r.config.InvoiceLookupDelay); err != nil {
		return nil, fmt.Errorf("create invoice: timed out, lookup interrupted: %w", err)
	}

	invoice, err := r.ledger.FindInvoiceByConcept(ctx, concept)
	if err != nil {
		if errors.Is(err, integration.ErrInvoiceNotFound) {
			return nil, errors.New("create invoice: timed out and no invoice found by concept, will retry")
		}
		return nil, fmt.Errorf("create invoice: timed out, concept lookup failed: %w", err)
	}
	log.Info("found invoice created by the timed-out request", zap.String("invoice_id", invoice.ID))
	return invoice, nil
}

// postInvoice asks the ledger to account the invoice. A timeout is treated as
// success under the same lost-response heuristic as creation; the next sweep
// would find the invoice already posted anyway.
func (r *OrderReconciler) postInvoice(ctx context.Context, tracking *billing.OrderTracking) error {
	log := logger.FromContext(ctx)

	invoice, err := r.ledger.GetInvoice(ctx, *tracking.InvoiceID)
	if err != nil && !errors.Is(err, integration.ErrTimeout) {
		return fmt.Errorf("fetch invoice: %w", err)
	}
	if err == nil && invoice.Posted {
		tracking.MarkPosted()
		log.Debug("invoice already posted in the ledger")
		return nil
	}

	if err := r.ledger.PostInvoice(ctx, *tracking.InvoiceID); err != nil {
		if errors.Is(err, integration.ErrTimeout) {
			log.Warn("invoice post timed out, assuming the ledger applied it",
				zap.String("invoice_id", *tracking.InvoiceID))
		} else {
			return fmt.Errorf("post invoice: %w", err)
		}
	}

	tracking.MarkPosted()
	log.Info("invoice posted", zap.String("invoice_id", *tracking.InvoiceID))
	return nil
}

// recordFailure writes the failure to the status log and persists it. The
// pipeline error itself is absorbed here; only a persistence failure surfaces.
func (r *OrderReconciler) recordFailure(ctx context.Context, tracking *billing.OrderTracking, reason string) error {
	logger.FromContext(ctx).Warn("reconciliation halted",
		zap.String("state", tracking.State().String()),
		zap.String("reason", reason))
	tracking.RecordFailure(reason)
	return r.trackings.Update(ctx, tracking)
}

// sleepContext sleeps for d unless the context ends first
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
