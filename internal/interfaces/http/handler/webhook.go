package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ledgersync/backend/internal/domain/billing"
	"github.com/ledgersync/backend/internal/domain/shared"
	"github.com/ledgersync/backend/internal/infrastructure/logger"
)

// deliveryIDHeader carries the storefront's unique webhook delivery id,
// used to drop redelivered events early
const deliveryIDHeader = "X-Shopify-Webhook-Id"

// OrderProcessor runs the reconciliation pipeline for one order number
type OrderProcessor interface {
	Process(ctx context.Context, number string, force bool) (*billing.OrderTracking, error)
}

// orderPaidPayload is the slice of the storefront's order webhook body the
// handler needs; everything else is refetched through the API
type orderPaidPayload struct {
	Name        string `json:"name"`
	OrderNumber int64  `json:"order_number"`
}

// number derives the order's business number from the payload
func (p *orderPaidPayload) number() string {
	if name := strings.TrimPrefix(strings.TrimSpace(p.Name), "#"); name != "" {
		return name
	}
	if p.OrderNumber > 0 {
		return fmt.Sprintf("%d", p.OrderNumber)
	}
	return ""
}

// WebhookHandler receives storefront webhooks. Every endpoint acknowledges
// with 200 no matter what happened internally: the storefront redelivers on
// any other status, and redelivery storms are worse than a dropped event the
// retry sweep will pick up anyway.
type WebhookHandler struct {
	BaseHandler
	reconciler OrderProcessor
	dedup      shared.IdempotencyStore
	dedupTTL   time.Duration
	logger     *zap.Logger

	// dispatch runs the pipeline off the request goroutine; tests make it synchronous
	dispatch func(func())
}

// NewWebhookHandler creates a webhook handler
func NewWebhookHandler(reconciler OrderProcessor, dedup shared.IdempotencyStore, dedupTTL time.Duration, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		dedup:      dedup,
		dedupTTL:   dedupTTL,
		logger:     log.Named("webhook"),
		dispatch:   func(job func()) { go job() },
	}
}

// RegisterRoutes registers the webhook endpoints
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	webhooks.POST("/orders/paid", h.HandleOrderPaid)
}

// HandleOrderPaid processes the storefront's order-paid event. The pipeline
// run is fire-and-forget so the 200 goes back before the storefront's
// delivery deadline.
func (h *WebhookHandler) HandleOrderPaid(c *gin.Context) {
	log := h.logger
	if requestID := c.GetString("request_id"); requestID != "" {
		log = log.With(zap.String("request_id", requestID))
	}

	var payload orderPaidPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Warn("unreadable order webhook payload", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	number := payload.number()
	if number == "" {
		log.Warn("order webhook without an order number")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	log = log.With(zap.String("order_number", number))

	if deliveryID := c.GetHeader(deliveryIDHeader); deliveryID != "" {
		fresh, err := h.dedup.MarkProcessed(c.Request.Context(), deliveryID, h.dedupTTL)
		if err != nil {
			// fall through: the pipeline's own idempotency gates still hold
			log.Warn("delivery de-duplication unavailable", zap.Error(err))
		} else if !fresh {
			log.Debug("duplicate webhook delivery dropped", zap.String("delivery_id", deliveryID))
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		}
	}

	h.dispatch(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("order processing panicked",
					zap.Any("panic", r),
					zap.Stack("stacktrace"))
			}
		}()

		// detached from the request context: the webhook is long acknowledged
		ctx := logger.WithContext(context.Background(), log)
		if _, err := h.reconciler.Process(ctx, number, false); err != nil {
			log.Error("order processing failed", zap.Error(err))
		}
	})

	c.JSON(http.StatusOK, gin.H{"received": true})
}
