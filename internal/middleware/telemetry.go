package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/sidechain/views/internal/util"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware starts a server span per request with otelgin and
// annotates it with the requester and route ID once the handler has run.
// otelgin ends its span and restores the request context on return, so
// the annotation has to run inside its chain.
func TracingMiddleware(serviceName string) gin.HandlersChain {
	return gin.HandlersChain{otelgin.Middleware(serviceName), annotateSpan}
}

func annotateSpan(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}

	if userID := c.GetString(util.UserIDKey); userID != "" {
		span.SetAttributes(attribute.String("user.id", userID))
	}
	if id := c.Param("id"); id != "" {
		span.SetAttributes(attribute.String("route.id", id))
	}

	for _, ginErr := range c.Errors {
		if ginErr.Err != nil {
			span.RecordError(ginErr.Err)
			span.SetStatus(codes.Error, ginErr.Error())
		}
	}
}
