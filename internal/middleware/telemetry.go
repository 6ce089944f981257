package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/BelikanM/cub/internal/util"
)

// TracingMiddleware traces HTTP requests with OpenTelemetry: otelgin opens
// the span and spanAttributes adds the caller, table and request id to it
// before it ends.
func TracingMiddleware(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{otelgin.Middleware(serviceName), spanAttributes}
}

func spanAttributes(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	if userID := c.GetString(util.UserIDKey); userID != "" {
		span.SetAttributes(attribute.String("user.id", userID))
	}
	if table := c.Param("table"); table != "" {
		span.SetAttributes(attribute.String("db.table", table))
	}
	if id := c.GetString(RequestIDKey); id != "" {
		span.SetAttributes(attribute.String("request.id", id))
	}
	for _, ginErr := range c.Errors {
		span.RecordError(ginErr.Err)
		span.SetStatus(codes.Error, ginErr.Error())
	}
}
