package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// withGlobalRecorder installs a recording tracer provider as the global
// one for the duration of the test. StartSpan resolves the provider
// through the otel global, so these tests have to swap it.
func withGlobalRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestStartSpan(t *testing.T) {
	sr := withGlobalRecorder(t)

	ctx, span := StartSpan(context.Background(), "document.confirm")
	require.NotNil(t, span)
	assert.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "document.confirm", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
}

func TestStartSpan_WithOptions(t *testing.T) {
	sr := withGlobalRecorder(t)

	_, span := StartSpan(context.Background(), "payment.create",
		WithSpanKind(trace.SpanKindClient),
		WithAttribute(SpanAttrPaymentType, "RECEIPT"),
		WithAttribute(SpanAttrAmount, 1500),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())

	attrs := spanAttrs(spans[0])
	assert.Equal(t, "RECEIPT", attrs[SpanAttrPaymentType].AsString())
	assert.Equal(t, int64(1500), attrs[SpanAttrAmount].AsInt64())
}

func TestStartServiceSpan(t *testing.T) {
	sr := withGlobalRecorder(t)

	_, span := StartServiceSpan(context.Background(), "stock_ledger", "record_movement")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "stock_ledger.record_movement", spans[0].Name())
}

func TestSetAttributes(t *testing.T) {
	sr := withGlobalRecorder(t)

	_, span := StartSpan(context.Background(), "test")
	SetAttributes(span,
		SpanAttrDocumentNumber, "SI-20260826-00001",
		SpanAttrQuantity, 10.5,
		SpanAttrItemID, uuid.MustParse("4be566e9-8b30-4bb9-8575-f3c8e6e68b3d"),
	)
	span.End()

	attrs := spanAttrs(sr.Ended()[0])
	assert.Equal(t, "SI-20260826-00001", attrs[SpanAttrDocumentNumber].AsString())
	assert.Equal(t, 10.5, attrs[SpanAttrQuantity].AsFloat64())
	// uuid.UUID satisfies fmt.Stringer
	assert.Equal(t, "4be566e9-8b30-4bb9-8575-f3c8e6e68b3d", attrs[SpanAttrItemID].AsString())
}

func TestSetAttributes_MalformedPairs(t *testing.T) {
	sr := withGlobalRecorder(t)

	_, span := StartSpan(context.Background(), "test")
	// Non-string key is skipped, trailing key without a value too
	SetAttributes(span, 42, "ignored", SpanAttrPartyName, "Sharma Traders", "dangling")
	span.End()

	attrs := spanAttrs(sr.Ended()[0])
	assert.Len(t, attrs, 1)
	assert.Equal(t, "Sharma Traders", attrs[SpanAttrPartyName].AsString())
}

func TestSetAttribute_TypeConversions(t *testing.T) {
	sr := withGlobalRecorder(t)

	_, span := StartSpan(context.Background(), "test")
	SetAttribute(span, "s", "text")
	SetAttribute(span, "i", 7)
	SetAttribute(span, "i64", int64(9))
	SetAttribute(span, "f", 2.5)
	SetAttribute(span, "b", true)
	SetAttribute(span, "ss", []string{"a", "b"})
	SetAttribute(span, "other", struct{ X int }{X: 1})
	span.End()

	attrs := spanAttrs(sr.Ended()[0])
	assert.Equal(t, "text", attrs["s"].AsString())
	assert.Equal(t, int64(7), attrs["i"].AsInt64())
	assert.Equal(t, int64(9), attrs["i64"].AsInt64())
	assert.Equal(t, 2.5, attrs["f"].AsFloat64())
	assert.True(t, attrs["b"].AsBool())
	assert.Equal(t, []string{"a", "b"}, attrs["ss"].AsStringSlice())
	assert.Equal(t, "{1}", attrs["other"].AsString())
}

func TestRecordError(t *testing.T) {
	sr := withGlobalRecorder(t)

	_, span := StartSpan(context.Background(), "test")
	RecordError(span, errors.New("insufficient stock"))
	span.End()

	got := sr.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "insufficient stock", got.Status().Description)
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "exception", got.Events()[0].Name)
}

func TestRecordError_NilCases(t *testing.T) {
	sr := withGlobalRecorder(t)

	_, span := StartSpan(context.Background(), "test")
	RecordError(span, nil)
	RecordError(nil, errors.New("ignored"))
	span.End()

	got := sr.Ended()[0]
	assert.NotEqual(t, codes.Error, got.Status().Code)
	assert.Empty(t, got.Events())
}

func TestSetOK(t *testing.T) {
	sr := withGlobalRecorder(t)

	_, span := StartSpan(context.Background(), "test")
	SetOK(span)
	SetOK(nil)
	span.End()

	assert.Equal(t, codes.Ok, sr.Ended()[0].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := withGlobalRecorder(t)

	_, span := StartSpan(context.Background(), "test")
	AddEvent(span, "movement_appended", SpanAttrMovementType, "FG_OUT")
	AddEvent(nil, "ignored")
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "movement_appended", events[0].Name)
	require.Len(t, events[0].Attributes, 1)
	assert.Equal(t, "FG_OUT", events[0].Attributes[0].Value.AsString())
}

func TestTraceAndSpanIDs(t *testing.T) {
	withGlobalRecorder(t)

	assert.Empty(t, GetTraceID(context.Background()))
	assert.Empty(t, GetSpanID(context.Background()))

	ctx, span := StartSpan(context.Background(), "test")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
	assert.Equal(t, span.SpanContext().SpanID().String(), GetSpanID(ctx))
}

func TestContextWithSpan_RoundTrip(t *testing.T) {
	withGlobalRecorder(t)

	_, span := StartSpan(context.Background(), "test")
	defer span.End()

	ctx := ContextWithSpan(context.Background(), span)
	assert.Equal(t, span, SpanFromContext(ctx))
}

func TestNestedSpans(t *testing.T) {
	sr := withGlobalRecorder(t)

	ctx, parent := StartSpan(context.Background(), "payment.create")
	_, child := StartSpan(ctx, "payment.allocate")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "payment.allocate", spans[0].Name())
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, parent.SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}
