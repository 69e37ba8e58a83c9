package telemetry

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Options configures the OTLP exporters. Every signal goes to the same
// collector under the same service identity and is switched on separately.
type Options struct {
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string

	Traces        bool
	SamplingRatio float64

	Metrics         bool
	MetricsInterval time.Duration

	Logs bool
}

func (o Options) resource() (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(o.ServiceName),
			semconv.ServiceVersion(cmp.Or(o.ServiceVersion, "dev")),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

// Providers holds one provider per signal. A disabled signal still has a
// provider; it just exports nothing.
type Providers struct {
	Tracer *TracerProvider
	Meter  *MeterProvider
	Logs   *LoggerProvider
}

// Setup starts every provider. If one fails the ones already started are
// shut down again.
func Setup(ctx context.Context, opts Options, log *zap.Logger) (*Providers, error) {
	p := &Providers{}
	var err error
	if p.Tracer, err = NewTracerProvider(ctx, opts, log); err != nil {
		return nil, err
	}
	if p.Meter, err = NewMeterProvider(ctx, opts, log); err != nil {
		return nil, multierr.Append(err, p.Tracer.Shutdown(ctx))
	}
	if p.Logs, err = NewLoggerProvider(ctx, opts, log); err != nil {
		return nil, multierr.Combine(err, p.Tracer.Shutdown(ctx), p.Meter.Shutdown(ctx))
	}
	return p, nil
}

// Shutdown flushes every signal. Logs go last so shutdown messages from the
// other providers are still exported.
func (p *Providers) Shutdown(ctx context.Context) error {
	return multierr.Combine(
		p.Tracer.Shutdown(ctx),
		p.Meter.Shutdown(ctx),
		p.Logs.Shutdown(ctx),
	)
}

func stopSignal(ctx context.Context, signal string, log *zap.Logger, shutdown func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		return fmt.Errorf("stop %s provider: %w", signal, err)
	}
	log.Info("Telemetry provider stopped", zap.String("signal", signal))
	return nil
}
