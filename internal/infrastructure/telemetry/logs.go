package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerProvider batches zap records to the collector via the otelzap bridge.
type LoggerProvider struct {
	sdk *sdklog.LoggerProvider
	log *zap.Logger
}

func NewLoggerProvider(ctx context.Context, opts Options, log *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{log: log}
	if !opts.Logs {
		log.Info("Log export disabled")
		return lp, nil
	}

	grpcOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		grpcOpts = append(grpcOpts, otlploggrpc.WithInsecure())
	}
	exp, err := otlploggrpc.New(ctx, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("log exporter: %w", err)
	}
	res, err := opts.resource()
	if err != nil {
		return nil, err
	}

	lp.sdk = sdklog.NewLoggerProvider(sdklog.WithResource(res), sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)))
	global.SetLoggerProvider(lp.sdk)
	log.Info("Log export enabled", zap.String("endpoint", opts.Endpoint))
	return lp, nil
}

func (lp *LoggerProvider) IsEnabled() bool { return lp != nil && lp.sdk != nil }

func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if !lp.IsEnabled() {
		return nil
	}
	return stopSignal(ctx, "log", lp.log, lp.sdk.Shutdown)
}

// BridgeLogger returns base teed into the OTLP provider under scope name.
// Only entries base itself would write are exported. Without an enabled
// provider base comes back unchanged.
func BridgeLogger(base *zap.Logger, lp *LoggerProvider, name string) *zap.Logger {
	if !lp.IsEnabled() {
		return base
	}
	exported := minLevel{
		Core:  otelzap.NewCore(name, otelzap.WithLoggerProvider(lp.sdk)),
		floor: zapcore.LevelOf(base.Core()),
	}
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, exported)
	}))
}

// minLevel drops entries below floor before they reach the wrapped core.
type minLevel struct {
	zapcore.Core
	floor zapcore.Level
}

func (m minLevel) Enabled(l zapcore.Level) bool { return l >= m.floor && m.Core.Enabled(l) }

func (m minLevel) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if e.Level < m.floor {
		return ce
	}
	return m.Core.Check(e, ce)
}

func (m minLevel) With(fields []zapcore.Field) zapcore.Core {
	return minLevel{Core: m.Core.With(fields), floor: m.floor}
}
