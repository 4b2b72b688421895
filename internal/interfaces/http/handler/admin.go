package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ledgersync/backend/internal/domain/billing"
	"github.com/ledgersync/backend/internal/infrastructure/logger"
)

// SnapshotTrigger starts one inventory snapshot run
type SnapshotTrigger interface {
	RunOnce(ctx context.Context)
}

// orderTrackingView is the API shape of a tracking record
type orderTrackingView struct {
	Number           string  `json:"number"`
	State            string  `json:"state"`
	Paid             bool    `json:"paid"`
	InvoiceID        *string `json:"invoice_id,omitempty"`
	InvoiceNumber    *string `json:"invoice_number,omitempty"`
	Posted           bool    `json:"posted"`
	StatusLog        string  `json:"status_log,omitempty"`
	RetriesRemaining int     `json:"retries_remaining"`
}

func newOrderTrackingView(record *billing.OrderTracking) orderTrackingView {
	return orderTrackingView{
		Number:           record.Number,
		State:            record.State().String(),
		Paid:             record.Paid,
		InvoiceID:        record.InvoiceID,
		InvoiceNumber:    record.InvoiceNumber,
		Posted:           record.Posted,
		StatusLog:        record.StatusLog,
		RetriesRemaining: record.RetriesRemaining,
	}
}

// AdminHandler exposes the operational endpoints: inspecting tracking
// records, forcing a reconciliation run, and triggering a snapshot sync
type AdminHandler struct {
	BaseHandler
	reconciler OrderProcessor
	trackings  billing.OrderTrackingRepository
	snapshot   SnapshotTrigger
	logger     *zap.Logger
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(reconciler OrderProcessor, trackings billing.OrderTrackingRepository, snapshot SnapshotTrigger, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		reconciler: reconciler,
		trackings:  trackings,
		snapshot:   snapshot,
		logger:     log.Named("admin"),
	}
}

// RegisterRoutes registers the admin endpoints
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.GET("/:number", h.GetOrderTracking)
	orders.POST("/:number/reconcile", h.ReconcileOrder)

	inventory := rg.Group("/inventory")
	inventory.POST("/sync", h.TriggerSnapshot)
}

// GetOrderTracking returns the tracking record for an order number
func (h *AdminHandler) GetOrderTracking(c *gin.Context) {
	number := c.Param("number")

	record, err := h.trackings.FindByNumber(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, billing.ErrTrackingNotFound) {
			h.Error(c, http.StatusNotFound, "NOT_FOUND", "no tracking record for order "+number)
			return
		}
		h.logger.Error("failed to load tracking record", zap.String("order_number", number), zap.Error(err))
		h.Error(c, http.StatusInternalServerError, "INTERNAL", "failed to load tracking record")
		return
	}

	h.Success(c, newOrderTrackingView(record))
}

// ReconcileOrder runs the pipeline for one order synchronously. The force
// query parameter bypasses blocks, including the do-not-invoice tag.
func (h *AdminHandler) ReconcileOrder(c *gin.Context) {
	number := c.Param("number")
	force := c.Query("force") == "true"

	ctx := logger.WithContext(c.Request.Context(), h.logger)
	record, err := h.reconciler.Process(ctx, number, force)
	if err != nil {
		h.logger.Error("manual reconciliation failed", zap.String("order_number", number), zap.Error(err))
		h.Error(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	h.Success(c, newOrderTrackingView(record))
}

// TriggerSnapshot starts an inventory snapshot run in the background
func (h *AdminHandler) TriggerSnapshot(c *gin.Context) {
	ctx := logger.WithContext(context.Background(), h.logger)
	go h.snapshot.RunOnce(ctx)

	c.JSON(http.StatusAccepted, gin.H{"started": true})
}
