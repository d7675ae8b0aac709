package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func fastQuery() (string, int64) {
	return "SELECT * FROM stock_movements", 3
}

func TestTrace_LogsQueryAtDebug(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Info)

	gl.Trace(context.Background(), time.Now(), fastQuery, nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.DebugLevel, entry.Level)
	assert.Equal(t, "SQL Query", entry.Message)
	assert.Equal(t, "SELECT * FROM stock_movements", entry.ContextMap()["sql"])
	assert.Equal(t, int64(3), entry.ContextMap()["rows"])
}

func TestTrace_SlowQueryWarns(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Nanosecond))

	gl.Trace(context.Background(), time.Now().Add(-time.Millisecond), fastQuery, nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Contains(t, entry.Message, "SLOW SQL")
}

func TestTrace_ErrorLogged(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), fastQuery, errors.New("deadlock detected"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "SQL Error", entry.Message)
	assert.Equal(t, "deadlock detected", entry.ContextMap()["error"])
}

func TestTrace_RecordNotFoundSuppressed(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), fastQuery, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())
}

func TestTrace_RecordNotFoundLoggedWhenConfigured(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Error, WithIgnoreRecordNotFoundError(false))

	gl.Trace(context.Background(), time.Now(), fastQuery, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, logs.Len())
}

func TestTrace_SilentLogsNothing(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Silent)

	gl.Trace(context.Background(), time.Now(), fastQuery, errors.New("ignored"))
	assert.Equal(t, 0, logs.Len())
}

func TestTrace_IncludesTraceID(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Info)

	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0x01},
		SpanID:  trace.SpanID{0x02},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	gl.Trace(ctx, time.Now(), fastQuery, nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, spanCtx.TraceID().String(), logs.All()[0].ContextMap()["trace_id"])
}

func TestLogMode_ReturnsIndependentCopy(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Silent)

	verbose := gl.LogMode(gormlogger.Info)
	verbose.Trace(context.Background(), time.Now(), fastQuery, nil)
	assert.Equal(t, 1, logs.Len())

	// The original keeps its silent level
	gl.Trace(context.Background(), time.Now(), fastQuery, nil)
	assert.Equal(t, 1, logs.Len())
}

func TestInfoWarnError_RespectLevel(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Warn)

	gl.Info(context.Background(), "dropped %s", "info")
	gl.Warn(context.Background(), "kept %s", "warn")
	gl.Error(context.Background(), "kept %s", "error")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "kept warn", logs.All()[0].Message)
	assert.Equal(t, "kept error", logs.All()[1].Message)
}

func TestMapGormLogLevel(t *testing.T) {
	cases := map[string]gormlogger.LogLevel{
		"silent":  gormlogger.Silent,
		"error":   gormlogger.Error,
		"warn":    gormlogger.Warn,
		"info":    gormlogger.Info,
		"debug":   gormlogger.Info,
		"":        gormlogger.Warn,
		"verbose": gormlogger.Warn,
	}
	for input, want := range cases {
		assert.Equal(t, want, MapGormLogLevel(input), "level %q", input)
	}
}
