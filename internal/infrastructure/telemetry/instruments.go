package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counter only goes up.
type Counter struct{ c metric.Int64Counter }

func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", name, err)
	}
	return &Counter{c: c}, nil
}

func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.c.Add(ctx, n, metric.WithAttributes(attrs...))
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) { c.Add(ctx, 1, attrs...) }

// Histogram records a distribution of float64 values.
type Histogram struct{ h metric.Float64Histogram }

// HistogramOpts names a histogram. Without Boundaries the SDK defaults apply.
type HistogramOpts struct {
	Name        string
	Description string
	Unit        string
	Boundaries  []float64
}

func NewHistogram(meter metric.Meter, o HistogramOpts) (*Histogram, error) {
	opts := []metric.Float64HistogramOption{metric.WithDescription(o.Description), metric.WithUnit(o.Unit)}
	if len(o.Boundaries) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(o.Boundaries...))
	}
	h, err := meter.Float64Histogram(o.Name, opts...)
	if err != nil {
		return nil, fmt.Errorf("histogram %s: %w", o.Name, err)
	}
	return &Histogram{h: h}, nil
}

func (h *Histogram) Record(ctx context.Context, v float64, attrs ...attribute.KeyValue) {
	h.h.Record(ctx, v, metric.WithAttributes(attrs...))
}

// RecordDuration records d in seconds.
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}

// Gauge holds the last recorded value.
type Gauge struct{ g metric.Int64Gauge }

func NewGauge(meter metric.Meter, name, description, unit string) (*Gauge, error) {
	g, err := meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("gauge %s: %w", name, err)
	}
	return &Gauge{g: g}, nil
}

func (g *Gauge) Record(ctx context.Context, v int64, attrs ...attribute.KeyValue) {
	g.g.Record(ctx, v, metric.WithAttributes(attrs...))
}

// Metric attribute keys.
var (
	AttrRole           = attribute.Key("role")
	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrHTTPRoute      = attribute.Key("http.route")

	AttrDBOperation = attribute.Key("db.operation")
	AttrDBTable     = attribute.Key("db.table")
	AttrDBState     = attribute.Key("db.pool.state")

	AttrPaymentMode     = attribute.Key("payment_mode")
	AttrPaymentProvider = attribute.Key("payment_provider")
	AttrPaymentStatus   = attribute.Key("payment_status")
	AttrCarrier         = attribute.Key("carrier")
	AttrShipmentAction  = attribute.Key("shipment_action")
	AttrOperation       = attribute.Key("operation")
	AttrOrderStatus     = attribute.Key("order_status")
)

var (
	// HTTPDurationBuckets are request latencies in seconds.
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	// DBDurationBuckets are query latencies in seconds.
	DBDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
	// OrderValueBuckets are order totals in rupees.
	OrderValueBuckets = []float64{250, 500, 1000, 1500, 2500, 5000, 10000}
)
