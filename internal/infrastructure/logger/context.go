package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// OrderNumberKey is the context key for the order number being reconciled
	OrderNumberKey contextKey = "order_number"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds the request ID to context and returns an enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithOrderNumber adds the order number to context and returns an enriched
// logger, so every log line of one reconciliation run carries the order
func WithOrderNumber(ctx context.Context, logger *zap.Logger, number string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, OrderNumberKey, number)
	enriched := logger.With(zap.String("order_number", number))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetOrderNumber retrieves the order number from context
func GetOrderNumber(ctx context.Context) string {
	if number, ok := ctx.Value(OrderNumberKey).(string); ok {
		return number
	}
	return ""
}
