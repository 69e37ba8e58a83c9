package telemetry

import (
	"context"
	"fmt"
	"sync"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// TracerProvider is the global span exporter. Disabled, the otel no-op
// provider stays installed.
type TracerProvider struct {
	sdk *sdktrace.TracerProvider
	log *zap.Logger

	mu       sync.Mutex
	profiled bool
}

func NewTracerProvider(ctx context.Context, opts Options, log *zap.Logger) (*TracerProvider, error) {
	tp := &TracerProvider{log: log}
	if !opts.Traces {
		log.Info("Tracing disabled")
		return tp, nil
	}

	grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	res, err := opts.resource()
	if err != nil {
		return nil, err
	}

	tp.sdk = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(opts.SamplingRatio)),
	)
	otel.SetTracerProvider(tp.sdk)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	log.Info("Tracing enabled", zap.String("endpoint", opts.Endpoint), zap.Float64("sampling_ratio", opts.SamplingRatio))
	return tp, nil
}

// sampler follows the parent's decision so the payment and carrier spans of a
// sampled request are kept with it.
func sampler(ratio float64) sdktrace.Sampler {
	root := sdktrace.TraceIDRatioBased(ratio)
	if ratio >= 1 {
		root = sdktrace.AlwaysSample()
	} else if ratio <= 0 {
		root = sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(root)
}

// EnableSpanProfiles tags CPU samples with the active span so a single
// checkout can be looked up in Pyroscope. The profiler must already run.
func (tp *TracerProvider) EnableSpanProfiles() error {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.sdk == nil || tp.profiled {
		return nil
	}
	otel.SetTracerProvider(otelpyroscope.NewTracerProvider(tp.sdk))
	tp.profiled = true
	tp.log.Info("Span profiles enabled")
	return nil
}

func (tp *TracerProvider) IsEnabled() bool { return tp.sdk != nil }

func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.sdk == nil {
		return nil
	}
	return stopSignal(ctx, "trace", tp.log, tp.sdk.Shutdown)
}
