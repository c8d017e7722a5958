package webquery

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nlstn/go-webquery/internal/observability"
)

// Doer executes HTTP requests. *http.Client implements it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets the transport. Defaults to an *http.Client using
// Config.Timeout.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithLogger sets the logger. If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracerProvider enables tracing with the given provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		c.obsOpts = append(c.obsOpts, observability.WithTracerProvider(tp))
	}
}

// WithMeterProvider enables metrics with the given provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Client) {
		c.obsOpts = append(c.obsOpts, observability.WithMeterProvider(mp))
	}
}

// WithServiceName names the remote service in traces and metrics.
func WithServiceName(name string) Option {
	return func(c *Client) {
		c.obsOpts = append(c.obsOpts, observability.WithServiceName(name))
	}
}

// WithTargetTracing records request targets, including filter values, on
// spans.
func WithTargetTracing() Option {
	return func(c *Client) {
		c.obsOpts = append(c.obsOpts, observability.WithTargetTracing())
	}
}

// WithRemoteTiming records Server-Timing metrics of the remote service on
// spans.
func WithRemoteTiming() Option {
	return func(c *Client) {
		c.obsOpts = append(c.obsOpts, observability.WithRemoteTiming())
	}
}

// WithBoundaryGenerator replaces the random batch boundary tokens.
func WithBoundaryGenerator(fn func() string) Option {
	return func(c *Client) {
		c.newBoundary = fn
	}
}
