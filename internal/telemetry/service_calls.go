package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceStorageCall creates a span for an object storage operation such as
// put_object or delete_object
func TraceStorageCall(ctx context.Context, operation, key string, sizeBytes int64) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("storage").Start(ctx, "storage."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("storage.operation", operation),
		),
	)
	if key != "" {
		span.SetAttributes(attribute.String("storage.key", key))
	}
	if sizeBytes > 0 {
		span.SetAttributes(attribute.Int64("storage.size_bytes", sizeBytes))
	}
	return ctx, span
}

// TraceChangePublish creates a span for publishing a row change
func TraceChangePublish(ctx context.Context, table, event string) (context.Context, trace.Span) {
	return otel.Tracer("changefeed").Start(ctx, "changefeed.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("db.table", table),
			attribute.String("change.event", event),
		),
	)
}

// RecordServiceError records a service error in the current span
func RecordServiceError(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "service_error"))
	}
}
