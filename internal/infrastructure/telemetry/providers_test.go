package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wellnest/backend/internal/infrastructure/telemetry"
)

func TestSetup_AllDisabled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p, err := telemetry.Setup(context.Background(), telemetry.Options{ServiceName: "wellnest-store"}, zap.New(core))
	require.NoError(t, err)

	assert.False(t, p.Tracer.IsEnabled())
	assert.False(t, p.Meter.IsEnabled())
	assert.False(t, p.Logs.IsEnabled())
	assert.NoError(t, p.Tracer.EnableSpanProfiles())
	assert.NoError(t, p.Shutdown(context.Background()))

	assert.Equal(t, 1, logs.FilterMessage("Tracing disabled").Len())
	assert.Zero(t, logs.FilterMessage("Telemetry provider stopped").Len())
}

func TestSetup_Enabled(t *testing.T) {
	prevTracer, prevMeter := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTracer)
		otel.SetMeterProvider(prevMeter)
	})

	// gRPC exporters dial lazily, so no collector has to listen here
	p, err := telemetry.Setup(context.Background(), telemetry.Options{
		Endpoint:       "localhost:4317",
		Insecure:       true,
		ServiceName:    "wellnest-store",
		ServiceVersion: "test",
		Traces:         true,
		SamplingRatio:  0.5,
		Metrics:        true,
		Logs:           true,
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, p.Tracer.IsEnabled())
	assert.True(t, p.Meter.IsEnabled())
	assert.True(t, p.Logs.IsEnabled())

	require.NoError(t, p.Tracer.EnableSpanProfiles())
	require.NoError(t, p.Tracer.EnableSpanProfiles())

	_, span := telemetry.StartServiceSpan(context.Background(), "checkout", "place_order")
	span.End()

	// nothing is listening, so only check that shutdown returns
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}
