package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"
)

// CorrelationMiddleware propagates X-Correlation-ID (falling back to the
// request ID) into the span and into baggage for background work.
// Must run after RequestIDMiddleware.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = c.GetString("request_id")
		}
		if correlationID == "" {
			c.Next()
			return
		}

		c.Set("correlation_id", correlationID)
		c.Header("X-Correlation-ID", correlationID)

		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)
		if span.IsRecording() {
			span.SetAttributes(attribute.String("trace.correlation_id", correlationID))
		}

		if member, err := baggage.NewMember("correlation_id", correlationID); err == nil {
			if b, err := baggage.New(member); err == nil {
				ctx = baggage.ContextWithBaggage(ctx, b)
			}
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetCorrelationIDFromContext extracts the correlation ID from baggage
func GetCorrelationIDFromContext(ctx context.Context) string {
	return baggage.FromContext(ctx).Member("correlation_id").Value()
}
