package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wellnest/backend/internal/infrastructure/telemetry"
)

// ProfilingLabels tags CPU and allocation samples taken while a request is
// served with its route, method, controller and caller role. It belongs
// after JWT auth so the role is known.
func ProfilingLabels() gin.HandlerFunc {
	return func(c *gin.Context) {
		telemetry.WithProfilingLabels(c.Request.Context(), requestLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func requestLabels(c *gin.Context) map[string]string {
	route := c.FullPath()
	role := CurrentRole(c)
	if role == "" {
		role = "guest"
	}
	labels := map[string]string{
		telemetry.ProfilingLabelMethod: c.Request.Method,
		telemetry.ProfilingLabelRole:   role,
	}
	if route != "" {
		labels[telemetry.ProfilingLabelRoute] = route
		labels[telemetry.ProfilingLabelController] = controllerOf(route)
	}
	return labels
}

// controllerOf names the resource a route serves: the first static segment
// after the version, joined with "admin" for admin routes.
//
//	/api/v1/products/:slug         -> products
//	/api/v1/admin/orders/:id/ship  -> admin_orders
func controllerOf(route string) string {
	var parts []string
	for seg := range strings.SplitSeq(route, "/") {
		if seg == "" || seg == "api" || isAPIVersion(seg) || seg[0] == ':' || seg[0] == '*' {
			continue
		}
		parts = append(parts, seg)
		if seg != "admin" {
			break
		}
	}
	return strings.Join(parts, "_")
}

func isAPIVersion(seg string) bool {
	if len(seg) < 2 || (seg[0] != 'v' && seg[0] != 'V') {
		return false
	}
	return strings.Trim(seg[1:], "0123456789") == ""
}
