package clientx

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Request describes one logical call. Stages never modify it.
type Request struct {
	Operation string      // logical operation name, used in logs, metrics and spans
	Method    string      // defaults to GET without a body and POST with one
	Path      string      // relative to Config.BaseURL
	Query     url.Values  // optional
	Body      any         // JSON-serializable payload, nil for none
	Header    http.Header // optional extra headers
}

// method returns the effective HTTP method.
func (r *Request) method() string {
	if r.Method != "" {
		return r.Method
	}
	if r.Body != nil {
		return http.MethodPost
	}
	return http.MethodGet
}

// Response is the result of one successful round trip.
type Response struct {
	Status   int
	Header   http.Header
	Body     any    // decoded JSON with snake_case keys; nil for an empty body
	Raw      []byte // bytes as received
	Duration time.Duration
}

// Call is the per-call wire state threaded through the pipeline.
type Call struct {
	Request   *Request
	Service   string
	Method    string
	Header    http.Header
	Payload   []byte
	RequestID string
	Started   time.Time // set by Pipeline.Handle when zero; stages time the call from it
}

// Handler runs the remainder of the pipeline.
type Handler func(ctx context.Context, call *Call) (*Response, error)

// Stage wraps a Handler. Outbound work happens before calling next and
// inbound work after it returns.
type Stage interface {
	Name() string
	Wrap(next Handler) Handler
}

// StageFunc adapts a function to Stage.
type StageFunc struct {
	StageName string
	WrapFunc  func(next Handler) Handler
}

func (s StageFunc) Name() string              { return s.StageName }
func (s StageFunc) Wrap(next Handler) Handler { return s.WrapFunc(next) }

// Pipeline is an ordered stage list composed once around a terminal handler.
// The first stage is outermost.
type Pipeline struct {
	stages  []Stage
	handler Handler
}

// NewPipeline composes stages around terminal.
func NewPipeline(terminal Handler, stages ...Stage) *Pipeline {
	h := terminal
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i].Wrap(h)
	}
	return &Pipeline{stages: append([]Stage(nil), stages...), handler: h}
}

// Handle runs call through every stage.
func (p *Pipeline) Handle(ctx context.Context, call *Call) (*Response, error) {
	if call.Started.IsZero() {
		call.Started = time.Now()
	}
	return p.handler(ctx, call)
}

// Names lists the stages outermost first.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}
