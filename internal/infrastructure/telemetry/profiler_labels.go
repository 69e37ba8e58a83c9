package telemetry

import (
	"context"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	// ProfilingLabelRole is guest, customer or admin
	ProfilingLabelRole = "role"
)

// maxLabelValueLength caps label values to keep series counts bounded
const maxLabelValueLength = 128

// unboundedLabels never become profile labels, every request has its own value
var unboundedLabels = []string{"user_id", "request_id", "order_id", "order_number", "trace_id", "span_id"}

// WithProfilingLabels runs fn with labels attached to its CPU samples so
// Pyroscope can slice a profile by route or role. Empty and unbounded labels
// are dropped, keys are folded to snake_case
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

func sanitizeLabels(labels map[string]string) []string {
	clean := make(map[string]string, len(labels))
	for k, v := range labels {
		key := labelKey(k)
		if key == "" || v == "" || slices.Contains(unboundedLabels, key) {
			continue
		}
		if len(v) > maxLabelValueLength {
			v = v[:maxLabelValueLength]
		}
		clean[key] = v
	}

	keys := make([]string, 0, len(clean))
	for k := range clean {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, clean[k])
	}
	return pairs
}

func labelKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteByte('_')
		}
	}
	return b.String()
}
