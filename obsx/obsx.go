// Package obsx bootstraps OpenTelemetry metrics and tracing for the partner client.
//
// Overview:
//   - Responsibility: Build meter and tracer providers; expose Prometheus scraping
//   - Key Types: Options for configuration, Provider for managing lifecycle
//   - Concurrency Model: Provider is safe for concurrent use
//   - Error Semantics: NewProvider returns error for initialization failures
//   - Performance Notes: Metrics are pulled on scrape; spans are batched when exported over OTLP
//
// Usage:
//
//	provider, err := obsx.NewProvider(ctx, obsx.Options{
//	  ServiceName: "mhvcfctl",
//	  ServiceVersion: "1.0.0",
//	})
//	defer provider.Shutdown(ctx)
//	client, err := clientx.New(cfg, clientx.WithMeterProvider(provider.MeterProvider()))
package obsx

import (
	"context"
	"io"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"go.eggybyte.com/evss/obsx/internal"
)

// Options holds configuration for the provider.
type Options struct {
	ServiceName      string                // Service name for metrics and spans
	ServiceVersion   string                // Service version
	ResourceAttrs    map[string]string     // Additional resource attributes
	OTLPEndpoint     string                // OTLP/gRPC collector address; empty keeps spans local
	OTLPInsecure     bool                  // Plaintext connection to the collector
	MetricInterval   time.Duration         // OTLP metric push interval; 0 uses the SDK default
	TraceSampleRatio float64               // Head sampling ratio in (0,1); other values sample everything
	SpanExporter     sdktrace.SpanExporter // Synchronous exporter, mainly for tests
	Registry         *promclient.Registry  // Prometheus registry; a private one when nil
	SetGlobal        bool                  // Install as the otel global providers
}

// Provider manages the OpenTelemetry meter and tracer providers.
// The provider must be shut down when no longer needed.
type Provider struct {
	impl *internal.Provider
}

// NewProvider creates a new provider.
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	impl, err := internal.NewProvider(ctx, internal.ProviderOptions{
		ServiceName:      opts.ServiceName,
		ServiceVersion:   opts.ServiceVersion,
		ResourceAttrs:    opts.ResourceAttrs,
		OTLPEndpoint:     opts.OTLPEndpoint,
		OTLPInsecure:     opts.OTLPInsecure,
		MetricInterval:   opts.MetricInterval,
		TraceSampleRatio: opts.TraceSampleRatio,
		SpanExporter:     opts.SpanExporter,
		Registerer:       opts.Registry,
		SetGlobal:        opts.SetGlobal,
	})
	if err != nil {
		return nil, err
	}

	return &Provider{impl: impl}, nil
}

// MeterProvider returns the OpenTelemetry meter provider.
func (p *Provider) MeterProvider() *metric.MeterProvider {
	return p.impl.MeterProvider
}

// TracerProvider returns the OpenTelemetry tracer provider.
func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	return p.impl.TracerProvider
}

// Meter returns a named Meter.
func (p *Provider) Meter(name string) api.Meter {
	return p.impl.MeterProvider.Meter(name)
}

// Tracer returns a named Tracer.
func (p *Provider) Tracer(name string) trace.Tracer {
	return p.impl.TracerProvider.Tracer(name)
}

// PrometheusHandler returns an HTTP handler serving metrics in Prometheus text format.
//
// Example:
//
//	mux := http.NewServeMux()
//	mux.Handle("/metrics", provider.PrometheusHandler())
func (p *Provider) PrometheusHandler() http.Handler {
	return p.impl.GetPrometheusHandler()
}

// WriteMetrics writes the current metrics in Prometheus text format, for
// one-shot processes that exit before anything could scrape them.
func (p *Provider) WriteMetrics(w io.Writer) error {
	return p.impl.WriteMetrics(w)
}

// Shutdown flushes spans and stops both providers.
// It blocks until shutdown completes or a five second bound expires.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.impl.Shutdown(ctx)
}
