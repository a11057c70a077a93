package clientx

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"go.eggybyte.com/evss/core/errors"
)

// TracingStage opens one client span per call.
func TracingStage(tracer trace.Tracer) Stage {
	return StageFunc{
		StageName: "tracing",
		WrapFunc: func(next Handler) Handler {
			return func(ctx context.Context, call *Call) (*Response, error) {
				ctx, span := tracer.Start(ctx, call.Service+" "+call.Request.Operation,
					trace.WithSpanKind(trace.SpanKindClient),
					trace.WithTimestamp(call.Started),
					trace.WithAttributes(
						attribute.String("peer.service", call.Service),
						attribute.String("http.request.method", call.Method),
						attribute.String("url.path", call.Request.Path),
						attribute.String("request.id", call.RequestID),
					),
				)
				defer span.End()

				resp, err := next(ctx, call)
				if resp != nil {
					span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
				}
				if err != nil {
					var statusErr *UpstreamStatusError
					if errors.As(err, &statusErr) {
						span.SetAttributes(attribute.Int("http.response.status_code", statusErr.Status))
					}
					span.SetAttributes(attribute.String("error.type", outcome(err)))
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				return resp, err
			}
		},
	}
}
