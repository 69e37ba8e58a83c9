// Package middleware holds the gin middleware of the storefront API.
package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"

	"github.com/wellnest/backend/internal/infrastructure/telemetry"
)

var (
	requestSizeBuckets = []float64{128, 512, 1024, 4096, 16384, 65536, 262144, 1048576}
	// invoice PDFs and order exports fill the top buckets
	responseSizeBuckets = []float64{128, 512, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304}
)

type httpInstruments struct {
	requests     *telemetry.Counter
	duration     *telemetry.Histogram
	requestSize  *telemetry.Histogram
	responseSize *telemetry.Histogram
	inFlight     metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	var ins httpInstruments
	var err, e error

	ins.requests, e = telemetry.NewCounter(meter, "http_server_request_total", "HTTP requests served", "{request}")
	err = multierr.Append(err, e)
	ins.duration, e = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name: "http_server_request_duration_seconds", Description: "HTTP request latency", Unit: "s",
		Boundaries: telemetry.HTTPDurationBuckets,
	})
	err = multierr.Append(err, e)
	ins.requestSize, e = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name: "http_server_request_size_bytes", Description: "HTTP request body size", Unit: "By",
		Boundaries: requestSizeBuckets,
	})
	err = multierr.Append(err, e)
	ins.responseSize, e = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name: "http_server_response_size_bytes", Description: "HTTP response body size", Unit: "By",
		Boundaries: responseSizeBuckets,
	})
	err = multierr.Append(err, e)
	ins.inFlight, e = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"), metric.WithUnit("{request}"))
	err = multierr.Append(err, e)

	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}
	return &ins, nil
}

// HTTPMetrics counts requests by route pattern, status and caller role and
// records latency and body sizes by route. Unmatched paths share the route
// "unknown" so scanners cannot blow up cardinality.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	ins, err := newHTTPInstruments(meter)
	if err != nil {
		return nil, err
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		ins.inFlight.Add(ctx, 1)
		c.Next()
		ins.inFlight.Add(ctx, -1)

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		role := CurrentRole(c)
		if role == "" {
			role = "guest"
		}
		byRoute := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}
		ins.requests.Inc(ctx, append(byRoute,
			telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()),
			telemetry.AttrRole.String(role),
		)...)
		ins.duration.RecordDuration(ctx, time.Since(start), byRoute...)
		if n := c.Request.ContentLength; n > 0 {
			ins.requestSize.Record(ctx, float64(n), byRoute...)
		}
		if n := c.Writer.Size(); n > 0 {
			ins.responseSize.Record(ctx, float64(n), byRoute...)
		}
	}, nil
}
