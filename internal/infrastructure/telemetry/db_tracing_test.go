package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSpanRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, tp
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	return attrs
}

// statementDB builds a gorm handle whose statement context carries the
// given span context, the shape annotateSpan sees after a query ran.
func statementDB(t *testing.T, ctx context.Context) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	db = db.Session(&gorm.Session{})
	db.Statement.Context = ctx
	return db
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
	assert.True(t, cfg.WithoutVariables)
}

func TestWithQueryStartTime(t *testing.T) {
	ctx := WithQueryStartTime(context.Background())

	startTime, ok := ctx.Value(queryStartTimeKey).(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), startTime, time.Second)
}

func TestRegisterOtelGorm_Disabled(t *testing.T) {
	db := statementDB(t, context.Background())

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	// Disabled registration must leave the callback chain untouched
	assert.Nil(t, db.Callback().Query().Get("otel_timing:after_query"))
}

func TestAnnotateSpan_TableAndRowsAffected(t *testing.T) {
	sr, tp := newSpanRecorder(t)
	ctx, span := tp.Tracer("test").Start(context.Background(), "query")

	db := statementDB(t, ctx)
	db.Statement.Table = "stock_movements"
	db.Statement.RowsAffected = 7

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	plugin.annotateSpan(db)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "stock_movements", attrs["db.sql.table"].AsString())
	assert.Equal(t, int64(7), attrs["db.rows_affected"].AsInt64())
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestAnnotateSpan_MarksErrors(t *testing.T) {
	sr, tp := newSpanRecorder(t)
	ctx, span := tp.Tracer("test").Start(context.Background(), "query")

	db := statementDB(t, ctx)
	db.Error = errors.New("deadlock detected")

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	plugin.annotateSpan(db)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "deadlock detected", spans[0].Status().Description)
}

func TestAnnotateSpan_IgnoresRecordNotFound(t *testing.T) {
	sr, tp := newSpanRecorder(t)
	ctx, span := tp.Tracer("test").Start(context.Background(), "query")

	db := statementDB(t, ctx)
	db.Error = gorm.ErrRecordNotFound

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	plugin.annotateSpan(db)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestAnnotateSpan_SlowQuery(t *testing.T) {
	sr, tp := newSpanRecorder(t)
	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	ctx = WithQueryStartTime(ctx)
	time.Sleep(2 * time.Millisecond)

	db := statementDB(t, ctx)

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Nanosecond}, zap.NewNop())
	plugin.annotateSpan(db)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	attrs := spanAttrs(spans[0])
	assert.True(t, attrs["db.slow_query"].AsBool())
	assert.GreaterOrEqual(t, attrs["db.query_duration_ms"].AsInt64(), int64(0))

	var warned bool
	for _, ev := range spans[0].Events() {
		if ev.Name == "slow_query_warning" {
			warned = true
		}
	}
	assert.True(t, warned, "slow statements must carry a slow_query_warning event")
}

func TestAnnotateSpan_FastQueryNotMarkedSlow(t *testing.T) {
	sr, tp := newSpanRecorder(t)
	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	ctx = WithQueryStartTime(ctx)

	db := statementDB(t, ctx)

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Hour}, zap.NewNop())
	plugin.annotateSpan(db)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	_, marked := spanAttrs(spans[0])["db.slow_query"]
	assert.False(t, marked)
}

func TestAnnotateSpan_NonRecordingSpanIsNoop(t *testing.T) {
	// A context without a sampled span must not panic or record
	db := statementDB(t, context.Background())
	db.Statement.Table = "parties"

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())
	plugin.annotateSpan(db)
}

func TestRegisterOtelGorm_TracesStatements(t *testing.T) {
	sr, tp := newSpanRecorder(t)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Nanosecond,
		DBSystem:        "sqlite",
	}, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	// Both callback sets must be installed alongside otelgorm
	assert.NotNil(t, db.Callback().Raw().Get("otel_timing:before_raw"))
	assert.NotNil(t, db.Callback().Raw().Get("otel_timing:after_raw"))

	ctx, root := tp.Tracer("test").Start(context.Background(), "request")
	require.NoError(t, db.WithContext(ctx).Exec("CREATE TABLE trace_probe (id INTEGER PRIMARY KEY)").Error)
	var n int64
	require.NoError(t, db.WithContext(ctx).Raw("SELECT COUNT(*) FROM trace_probe").Scan(&n).Error)
	root.End()

	var statementSpans int
	for _, span := range sr.Ended() {
		if span.Name() != "request" {
			statementSpans++
		}
	}
	assert.GreaterOrEqual(t, statementSpans, 2, "each statement must produce an otelgorm span")
}
