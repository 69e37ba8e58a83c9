package telemetry

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const defaultExportInterval = time.Minute

// MeterProvider pushes metrics to the collector on a fixed interval.
// Disabled, Meter falls back to the global no-op provider.
type MeterProvider struct {
	sdk *sdkmetric.MeterProvider
	log *zap.Logger
}

func NewMeterProvider(ctx context.Context, opts Options, log *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{log: log}
	if !opts.Metrics {
		log.Info("Metrics disabled")
		return mp, nil
	}
	interval := cmp.Or(max(opts.MetricsInterval, 0), defaultExportInterval)

	grpcOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	res, err := opts.resource()
	if err != nil {
		return nil, err
	}

	mp.sdk = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.sdk)
	log.Info("Metrics enabled", zap.String("endpoint", opts.Endpoint), zap.Duration("interval", interval))
	return mp, nil
}

func (mp *MeterProvider) Meter(name string) metric.Meter {
	if mp.sdk == nil {
		return otel.GetMeterProvider().Meter(name)
	}
	return mp.sdk.Meter(name)
}

func (mp *MeterProvider) IsEnabled() bool { return mp.sdk != nil }

func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.sdk == nil {
		return nil
	}
	return stopSignal(ctx, "metric", mp.log, mp.sdk.Shutdown)
}
