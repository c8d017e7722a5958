package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
	"go.opentelemetry.io/otel/attribute"
)

// ServerTimingMetric wraps the server-timing library's Metric type.
type ServerTimingMetric struct {
	metric *servertiming.Metric
}

// Stop stops the timing metric.
func (m *ServerTimingMetric) Stop() {
	if m != nil && m.metric != nil {
		m.metric.Stop()
	}
}

// StartServerTiming adds a metric to the Server-Timing header of the host
// request carried by ctx. Without timing info in ctx it returns a no-op metric.
func StartServerTiming(ctx context.Context, name string) *ServerTimingMetric {
	timing := servertiming.FromContext(ctx)
	if timing == nil {
		return &ServerTimingMetric{}
	}

	return &ServerTimingMetric{
		metric: timing.NewMetric(name).Start(),
	}
}

// RemoteMetric is one metric reported by a remote Server-Timing header.
type RemoteMetric struct {
	Name     string
	Duration time.Duration
	Desc     string
}

// ParseRemoteTiming reads the Server-Timing headers of a remote response.
// Malformed headers are ignored.
func ParseRemoteTiming(h http.Header) []RemoteMetric {
	values := h.Values(servertiming.HeaderKey)
	if len(values) == 0 {
		return nil
	}
	parsed, err := servertiming.ParseHeader(strings.Join(values, ","))
	if err != nil {
		return nil
	}

	out := make([]RemoteMetric, 0, len(parsed.Metrics))
	for _, m := range parsed.Metrics {
		out = append(out, RemoteMetric{Name: m.Name, Duration: m.Duration, Desc: m.Desc})
	}
	return out
}

// RemoteTimingAttrs converts remote metrics into span attributes.
func RemoteTimingAttrs(metrics []RemoteMetric) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(metrics))
	for _, m := range metrics {
		attrs = append(attrs, attribute.Float64(AttrRemoteTimingPrefix+m.Name, float64(m.Duration)/float64(time.Millisecond)))
	}
	return attrs
}
