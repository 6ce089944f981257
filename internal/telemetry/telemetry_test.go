package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestInitTracerDisabled(t *testing.T) {
	tp, err := InitTracer(Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, tp)
	assert.NoError(t, Shutdown(context.Background(), tp))
}

func TestTraceStorageCall(t *testing.T) {
	rec := withRecorder(t)

	_, span := TraceStorageCall(context.Background(), "put_object", "media/u/x.png", 10)
	RecordServiceError(span, errors.New("boom"))
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "storage.put_object", spans[0].Name())
	assert.Len(t, spans[0].Events(), 1)
}

func TestGORMTracingPlugin(t *testing.T) {
	rec := withRecorder(t)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.Use(GORMTracingPlugin("sqlite")))

	type widget struct {
		ID   uint
		Name string
	}
	require.NoError(t, db.AutoMigrate(&widget{}))
	require.NoError(t, db.WithContext(context.Background()).Create(&widget{Name: "a"}).Error)

	var missing widget
	err = db.WithContext(context.Background()).First(&missing, 42).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	byName := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range rec.Ended() {
		byName[s.Name()] = s
	}

	insert, ok := byName["db.insert"]
	require.True(t, ok)
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range insert.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "sqlite", attrs["db.system"].AsString())
	assert.Equal(t, "widgets", attrs["db.table"].AsString())
	assert.EqualValues(t, 1, attrs["db.rows_affected"].AsInt64())

	sel, ok := byName["db.select"]
	require.True(t, ok)
	assert.Equal(t, codes.Unset, sel.Status().Code, "a missing row is not a span error")
}
