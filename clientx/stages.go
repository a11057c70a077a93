package clientx

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"time"

	"go.eggybyte.com/evss/core/errors"
	"go.eggybyte.com/evss/core/log"
)

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// ClassifierStage turns every non-2xx response into an *UpstreamStatusError.
func ClassifierStage() Stage {
	return StageFunc{
		StageName: "classifier",
		WrapFunc: func(next Handler) Handler {
			return func(ctx context.Context, call *Call) (*Response, error) {
				resp, err := next(ctx, call)
				if err != nil || isSuccess(resp.Status) {
					return resp, err
				}
				return nil, &UpstreamStatusError{
					Service: call.Service,
					Status:  resp.Status,
					Body:    resp.Body,
					Raw:     resp.Raw,
					Header:  resp.Header,
				}
			}
		},
	}
}

// EncoderStage serializes Request.Body to JSON. An unserializable body fails
// the call before any network activity.
func EncoderStage() Stage {
	return StageFunc{
		StageName: "encoder",
		WrapFunc: func(next Handler) Handler {
			return func(ctx context.Context, call *Call) (*Response, error) {
				if call.Request.Body == nil {
					return next(ctx, call)
				}
				payload, err := json.Marshal(call.Request.Body)
				if err != nil {
					return nil, errors.Build(errors.CodeInvalidArgument).
						WithOp("clientx.encode").
						WithErr(err).
						WithMsg("request body is not JSON serializable").
						WithDetails("operation", call.Request.Operation).
						Err()
				}
				call.Payload = payload
				call.Header.Set("Content-Type", "application/json")
				return next(ctx, call)
			}
		},
	}
}

// LoggerStage logs one line per call. Bodies, headers and credential material
// are never logged.
func LoggerStage(logger log.Logger) Stage {
	return StageFunc{
		StageName: "logger",
		WrapFunc: func(next Handler) Handler {
			return func(ctx context.Context, call *Call) (*Response, error) {
				resp, err := next(ctx, call)

				kv := []any{
					log.Str("service", call.Service),
					log.Str("operation", call.Request.Operation),
					log.Str("method", call.Method),
					log.Str("path", call.Request.Path),
					log.Dur("duration_ms", time.Since(call.Started)),
					log.Str("request_id", call.RequestID),
				}
				switch {
				case err != nil:
					kv = append(kv, log.Str("code", string(errors.CodeOf(err))))
					logger.Error(err, "upstream call failed", kv...)
				case !isSuccess(resp.Status):
					kv = append(kv, log.Int("status", resp.Status), log.Str("code", string(errors.CodeUpstreamStatus)))
					logger.Warn("upstream call rejected", kv...)
				default:
					kv = append(kv, log.Int("status", resp.Status))
					logger.Info("upstream call completed", kv...)
				}
				return resp, err
			}
		},
	}
}

// NormalizerStage rewrites decoded body keys to snake_case.
func NormalizerStage() Stage {
	return StageFunc{
		StageName: "normalizer",
		WrapFunc: func(next Handler) Handler {
			return func(ctx context.Context, call *Call) (*Response, error) {
				resp, err := next(ctx, call)
				if err != nil || resp.Body == nil {
					return resp, err
				}
				resp.Body = NormalizeKeys(resp.Body)
				return resp, nil
			}
		},
	}
}

// DecoderStage parses the raw body as JSON, keeping numbers as json.Number.
// An unparsable 2xx body yields *MalformedResponseError; for other statuses
// the body is left nil so the classifier still reports the status.
func DecoderStage() Stage {
	return StageFunc{
		StageName: "decoder",
		WrapFunc: func(next Handler) Handler {
			return func(ctx context.Context, call *Call) (*Response, error) {
				resp, err := next(ctx, call)
				if err != nil || len(bytes.TrimSpace(resp.Raw)) == 0 {
					return resp, err
				}

				body, decErr := decodeJSON(resp.Raw)
				if decErr != nil {
					if isSuccess(resp.Status) {
						return nil, &MalformedResponseError{
							Service: call.Service,
							Status:  resp.Status,
							Raw:     resp.Raw,
							Err:     decErr,
						}
					}
					return resp, nil
				}
				resp.Body = body
				return resp, nil
			}
		},
	}
}

// errTrailingData is returned when a body holds more than one JSON value.
var errTrailingData = stderrors.New("unexpected data after JSON value")

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return v, nil
}
