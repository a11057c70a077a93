package clientx

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"go.eggybyte.com/evss/core/errors"
)

const instrumentationName = "go.eggybyte.com/evss/clientx"

// Metrics holds OpenTelemetry instruments for outbound calls.
type Metrics struct {
	requestsTotal      metric.Int64Counter
	requestDuration    metric.Float64Histogram
	breakerTransitions metric.Int64Counter
}

// NewMetrics creates the client instruments on mp.
//
// Metrics collected:
//   - upstream_client_requests_total: calls by service, operation and code
//   - upstream_client_request_duration_seconds: call latency
//   - upstream_client_breaker_state_changes_total: breaker transitions by service, from and to
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(instrumentationName)

	requestsTotal, err := meter.Int64Counter(
		"upstream_client_requests_total",
		metric.WithDescription("Total number of outbound upstream calls"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"upstream_client_request_duration_seconds",
		metric.WithDescription("Outbound upstream call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 10, 30,
		),
	)
	if err != nil {
		return nil, err
	}

	breakerTransitions, err := meter.Int64Counter(
		"upstream_client_breaker_state_changes_total",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestsTotal:      requestsTotal,
		requestDuration:    requestDuration,
		breakerTransitions: breakerTransitions,
	}, nil
}

// outcome is the metric label for a finished call.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code := errors.CodeOf(err); code != "" {
		return string(code)
	}
	return "unknown"
}

// Stage records request count and duration for every call.
func (m *Metrics) Stage() Stage {
	return StageFunc{
		StageName: "metrics",
		WrapFunc: func(next Handler) Handler {
			return func(ctx context.Context, call *Call) (*Response, error) {
				resp, err := next(ctx, call)

				attrs := metric.WithAttributes(
					attribute.String("service", call.Service),
					attribute.String("operation", call.Request.Operation),
					attribute.String("code", outcome(err)),
				)
				m.requestsTotal.Add(ctx, 1, attrs)

				opts := []metric.RecordOption{attrs}
				if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
					opts = append(opts, metric.WithAttributes(attribute.String("trace_id", sc.TraceID().String())))
				}
				m.requestDuration.Record(ctx, time.Since(call.Started).Seconds(), opts...)

				return resp, err
			}
		},
	}
}

// RecordBreakerTransition is a StateListener that counts transitions.
func (m *Metrics) RecordBreakerTransition(service string, from, to gobreaker.State) {
	m.breakerTransitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}
