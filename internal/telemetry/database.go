package telemetry

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanInstanceKey = "cub:db_span"
	maxStatementLen = 300
)

// GORMTracingPlugin returns a GORM plugin that opens one span per statement.
// system is the db.system attribute, e.g. postgresql or sqlite.
func GORMTracingPlugin(system string) gorm.Plugin {
	return &dbTracer{
		tracer: otel.Tracer("github.com/BelikanM/cub/database"),
		system: system,
	}
}

type dbTracer struct {
	tracer trace.Tracer
	system string
}

func (t *dbTracer) Name() string { return "cub:db_tracing" }

// Initialize hooks every statement kind gorm runs, hand-written SQL included.
func (t *dbTracer) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before error
		after  error
	}{
		{"select",
			cb.Query().Before("gorm:query").Register("cub:trace_select", t.open("select")),
			cb.Query().After("gorm:query").Register("cub:trace_select_end", t.close)},
		{"insert",
			cb.Create().Before("gorm:create").Register("cub:trace_insert", t.open("insert")),
			cb.Create().After("gorm:create").Register("cub:trace_insert_end", t.close)},
		{"update",
			cb.Update().Before("gorm:update").Register("cub:trace_update", t.open("update")),
			cb.Update().After("gorm:update").Register("cub:trace_update_end", t.close)},
		{"delete",
			cb.Delete().Before("gorm:delete").Register("cub:trace_delete", t.open("delete")),
			cb.Delete().After("gorm:delete").Register("cub:trace_delete_end", t.close)},
		{"row",
			cb.Row().Before("gorm:row").Register("cub:trace_row", t.open("row")),
			cb.Row().After("gorm:row").Register("cub:trace_row_end", t.close)},
		{"raw",
			cb.Raw().Before("gorm:raw").Register("cub:trace_raw", t.open("raw")),
			cb.Raw().After("gorm:raw").Register("cub:trace_raw_end", t.close)},
	}
	for _, h := range hooks {
		if err := errors.Join(h.before, h.after); err != nil {
			return fmt.Errorf("failed to register %s tracing: %w", h.op, err)
		}
	}
	return nil
}

func (t *dbTracer) open(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		_, span := t.tracer.Start(ctx, "db."+op,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", t.system),
				attribute.String("db.table", table),
				attribute.String("db.operation", op),
			),
		)
		db.InstanceSet(spanInstanceKey, span)
	}
}

func (t *dbTracer) close(db *gorm.DB) {
	v, ok := db.InstanceGet(spanInstanceKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if sql := db.Statement.SQL.String(); sql != "" {
		span.SetAttributes(attribute.String("db.statement", clip(sql, maxStatementLen)))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))

	// A missing row is a 404 for the caller, not a database failure.
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
