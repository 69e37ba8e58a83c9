package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellnest/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// recordSpans installs an in-memory tracer provider for the test
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "checkout", "place_order",
		telemetry.SpanAttrPaymentMode, "cod",
		telemetry.SpanAttrItemCount, 3,
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "checkout.place_order", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
	assert.Equal(t, telemetry.TracerName, spans[0].InstrumentationScope().Name)

	attrs := attrMap(spans[0])
	assert.Equal(t, "cod", attrs[telemetry.SpanAttrPaymentMode].AsString())
	assert.Equal(t, int64(3), attrs[telemetry.SpanAttrItemCount].AsInt64())
}

func TestStartServiceSpan_Nesting(t *testing.T) {
	sr := recordSpans(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "payment", "webhook")
	_, child := telemetry.StartServiceSpan(ctx, "payment", "verify")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}

func TestSetAttributes(t *testing.T) {
	sr := recordSpans(t)
	orderID := uuid.New()

	_, span := telemetry.StartServiceSpan(context.Background(), "order", "update_status")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID,
		telemetry.SpanAttrOrderStatus, "Processing",
		42, "ignored because the key is not a string",
		"paid", true,
		"total", 1497.5,
		"skus", []string{"ashwagandha-60", "tulsi-tea"},
		"dangling",
	)
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderCount, int64(7))
	span.End()

	attrs := attrMap(sr.Ended()[0])
	assert.Equal(t, orderID.String(), attrs[telemetry.SpanAttrOrderID].AsString())
	assert.Equal(t, "Processing", attrs[telemetry.SpanAttrOrderStatus].AsString())
	assert.True(t, attrs["paid"].AsBool())
	assert.Equal(t, 1497.5, attrs["total"].AsFloat64())
	assert.Equal(t, []string{"ashwagandha-60", "tulsi-tea"}, attrs["skus"].AsStringSlice())
	assert.Equal(t, int64(7), attrs[telemetry.SpanAttrOrderCount].AsInt64())
	assert.NotContains(t, attrs, attribute.Key("dangling"))
	assert.Len(t, attrs, 6)
}

func TestRecordError(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "payment", "verify")
	telemetry.RecordError(span, errors.New("signature mismatch"))
	span.End()

	ended := sr.Ended()[0]
	assert.Equal(t, codes.Error, ended.Status().Code)
	assert.Equal(t, "signature mismatch", ended.Status().Description)
	require.Len(t, ended.Events(), 1)
	assert.Equal(t, "exception", ended.Events()[0].Name)
}

func TestRecordError_NilError(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "payment", "verify")
	telemetry.RecordError(span, nil)
	span.End()

	assert.Equal(t, codes.Unset, sr.Ended()[0].Status().Code)
}

func TestAddEvent(t *testing.T) {
	sr := recordSpans(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "checkout", "place_order")
	telemetry.AddEvent(span, "stock_committed", telemetry.SpanAttrItemCount, 2)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "stock_committed", events[0].Name)
	require.Len(t, events[0].Attributes, 1)
	assert.Equal(t, int64(2), events[0].Attributes[0].Value.AsInt64())
}

func TestHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("boom"))
		telemetry.AddEvent(nil, "event", "k", "v")
	})
}
