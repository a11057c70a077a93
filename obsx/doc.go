// Package obsx provides OpenTelemetry metrics and tracing bootstrap for the
// partner client.
//
// # Overview
//
// obsx constructs a meter provider backed by a Prometheus exporter and a
// tracer provider that optionally exports over OTLP/gRPC. clientx consumes
// both through its MetricsStage and TracingStage.
//
// # Features
//
//   - Meter provider with Prometheus export (pull only)
//   - Tracer provider with parent-based ratio sampling
//   - Optional OTLP/gRPC span export
//   - Graceful shutdown with bounded timeouts
//
// # Usage
//
//	provider, err := obsx.NewProvider(ctx, obsx.Options{ServiceName: "mhvcfctl"})
//	if err != nil { return err }
//	defer provider.Shutdown(ctx)
//
//	http.Handle("/metrics", provider.PrometheusHandler())
package obsx
