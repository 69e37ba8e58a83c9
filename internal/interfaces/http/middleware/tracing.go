package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps header-supplied request IDs.
const MaxRequestIDLength = 128

var untracedPaths = []string{"/health", "/ready", "/swagger/"}

// Tracing returns the span middleware pair: otelgin opens a server span named
// after the route pattern, and decorateSpan annotates it once the rest of the
// chain, JWT included, has run. Health checks and docs are not traced.
func Tracing(serviceName string, opts ...otelgin.Option) []gin.HandlerFunc {
	opts = append([]otelgin.Option{otelgin.WithFilter(traced)}, opts...)
	return []gin.HandlerFunc{otelgin.Middleware(serviceName, opts...), decorateSpan}
}

func traced(r *http.Request) bool {
	for _, p := range untracedPaths {
		if strings.HasPrefix(r.URL.Path, p) {
			return false
		}
	}
	return true
}

func decorateSpan(c *gin.Context) {
	c.Next()

	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	attrs := make([]attribute.KeyValue, 0, 4)
	add := func(key, value string) {
		if value != "" {
			attrs = append(attrs, attribute.String(key, value))
		}
	}
	add("request_id", c.GetString(RequestIDKey))
	add("user_id", CurrentUserID(c))
	add("role", CurrentRole(c))
	add("order_id", routeOrderID(c))
	span.SetAttributes(attrs...)

	// otelgin only marks 5xx
	if status := c.Writer.Status(); status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	if len(c.Errors) > 0 {
		span.RecordError(c.Errors.Last())
	}
}

// routeOrderID returns the :id parameter of order routes
func routeOrderID(c *gin.Context) string {
	route := c.FullPath()
	if !strings.HasPrefix(route, "/api/v1/orders/:id") && !strings.HasPrefix(route, "/api/v1/admin/orders/:id") {
		return ""
	}
	if id := c.Param("id"); len(id) <= MaxRequestIDLength {
		return id
	}
	return ""
}
