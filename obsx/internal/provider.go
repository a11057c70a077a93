// Package internal provides internal implementation for the obsx package.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ProviderOptions holds configuration for the observability provider.
type ProviderOptions struct {
	ServiceName      string
	ServiceVersion   string
	ResourceAttrs    map[string]string
	OTLPEndpoint     string                // host:port of an OTLP/gRPC collector; empty disables export
	OTLPInsecure     bool                  // plaintext connection to the collector
	MetricInterval   time.Duration         // OTLP metric push interval; 0 uses the SDK default
	TraceSampleRatio float64               // 0 means always sample
	SpanExporter     sdktrace.SpanExporter // synchronous exporter, used instead of OTLP when set
	Registerer       *promclient.Registry  // registry for the Prometheus exporter; a fresh one when nil
	SetGlobal        bool                  // install providers as the otel globals
}

// Provider owns the meter and tracer providers.
type Provider struct {
	MeterProvider      *metric.MeterProvider
	TracerProvider     *sdktrace.TracerProvider
	prometheusRegistry *promclient.Registry
}

// NewProvider creates a meter provider with Prometheus export and a tracer provider.
func NewProvider(ctx context.Context, opts ProviderOptions) (*Provider, error) {
	if opts.ServiceName == "" {
		return nil, fmt.Errorf("service name is required")
	}

	res, err := createResource(ctx, opts)
	if err != nil {
		return nil, err
	}

	mp, promRegistry, err := createMeterProvider(ctx, res, opts)
	if err != nil {
		return nil, err
	}

	tp, err := createTracerProvider(ctx, res, opts)
	if err != nil {
		_ = mp.Shutdown(ctx)
		return nil, err
	}

	if opts.SetGlobal {
		otel.SetMeterProvider(mp)
		otel.SetTracerProvider(tp)
	}

	return &Provider{
		MeterProvider:      mp,
		TracerProvider:     tp,
		prometheusRegistry: promRegistry,
	}, nil
}

// createResource creates an OpenTelemetry resource with service attributes.
func createResource(ctx context.Context, opts ProviderOptions) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if len(opts.ResourceAttrs) > 0 {
		var attrs []attribute.KeyValue
		for k, v := range opts.ResourceAttrs {
			attrs = append(attrs, attribute.String(k, v))
		}
		res, err = resource.Merge(res, resource.NewWithAttributes(semconv.SchemaURL, attrs...))
		if err != nil {
			return nil, fmt.Errorf("failed to add resource attributes: %w", err)
		}
	}

	return res, nil
}

// createMeterProvider creates a meter provider with Prometheus export, plus
// periodic OTLP/gRPC push when an endpoint is configured.
func createMeterProvider(ctx context.Context, res *resource.Resource, opts ProviderOptions) (*metric.MeterProvider, *promclient.Registry, error) {
	registry := opts.Registerer
	if registry == nil {
		registry = promclient.NewRegistry()
	}
	promExporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithoutUnits(),           // Prometheus prefers base units without suffix
		prometheus.WithoutScopeInfo(),       // Remove otel_scope_* labels to reduce cardinality
		prometheus.WithoutCounterSuffixes(), // Remove _total suffix duplication
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mpOpts := []metric.Option{
		metric.WithResource(res),
		metric.WithReader(promExporter),
	}

	if opts.OTLPEndpoint != "" {
		clientOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(opts.OTLPEndpoint)}
		if opts.OTLPInsecure {
			clientOpts = append(clientOpts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, clientOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create otlp metric exporter: %w", err)
		}
		var readerOpts []metric.PeriodicReaderOption
		if opts.MetricInterval > 0 {
			readerOpts = append(readerOpts, metric.WithInterval(opts.MetricInterval))
		}
		mpOpts = append(mpOpts, metric.WithReader(metric.NewPeriodicReader(exporter, readerOpts...)))
	}

	return metric.NewMeterProvider(mpOpts...), registry, nil
}

// createTracerProvider creates a tracer provider. Spans are exported over
// OTLP/gRPC when an endpoint is configured, or to opts.SpanExporter.
func createTracerProvider(ctx context.Context, res *resource.Resource, opts ProviderOptions) (*sdktrace.TracerProvider, error) {
	sampler := sdktrace.AlwaysSample()
	if opts.TraceSampleRatio > 0 && opts.TraceSampleRatio < 1 {
		sampler = sdktrace.TraceIDRatioBased(opts.TraceSampleRatio)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	}

	switch {
	case opts.SpanExporter != nil:
		tpOpts = append(tpOpts, sdktrace.WithSyncer(opts.SpanExporter))
	case opts.OTLPEndpoint != "":
		clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.OTLPEndpoint)}
		if opts.OTLPInsecure {
			clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp trace exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	return sdktrace.NewTracerProvider(tpOpts...), nil
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics endpoint.
func (p *Provider) GetPrometheusHandler() http.Handler {
	if p.prometheusRegistry == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("# Prometheus metrics not available\n"))
		})
	}

	return promhttp.HandlerFor(p.prometheusRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// WriteMetrics gathers the Prometheus registry and writes it to w in text format.
func (p *Provider) WriteMetrics(w io.Writer) error {
	if p.prometheusRegistry == nil {
		return errors.New("prometheus metrics not available")
	}

	families, err := p.prometheusRegistry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Shutdown flushes pending spans and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
