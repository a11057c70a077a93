// Package clientx provides the hardened mutual-TLS client core for partner services.
//
// Overview:
//   - Responsibility: Load credentials, build the TLS transport, run calls through an ordered stage pipeline
//   - Key Types: Config, Client, Request, Response, Stage, BreakerRegistry
//   - Concurrency Model: Client is safe for concurrent use; per-call state lives in Call
//   - Error Semantics: Every failure is one classified error (see core/errors codes)
//   - Performance Notes: Connections are pooled per client; breakers are shared per service name
//
// Usage:
//
//	client, err := clientx.New(cfg, clientx.WithLogger(logger))
//	if err != nil {
//	  return err
//	}
//	defer client.Close()
//	resp, err := client.Do(ctx, &clientx.Request{Operation: "get_forms", Path: "getInflightForms"})
package clientx

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"go.eggybyte.com/evss/core/errors"
	"go.eggybyte.com/evss/core/identity"
	"go.eggybyte.com/evss/core/log"
	"go.eggybyte.com/evss/tlsx"
)

// Options configures collaborators of a Client.
type Options struct {
	Logger         log.Logger
	Breakers       *BreakerRegistry
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
	Stages         func(defaults []Stage) []Stage
	Now            func() time.Time
}

// Option is a functional option for configuring the client.
type Option func(*Options)

// WithLogger sets the logger used for call and lifecycle logs.
func WithLogger(l log.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithBreakers replaces DefaultBreakers, typically with a fresh registry in tests.
func WithBreakers(r *BreakerRegistry) Option {
	return func(o *Options) {
		o.Breakers = r
	}
}

// WithMeterProvider enables call metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *Options) {
		o.MeterProvider = mp
	}
}

// WithTracerProvider enables call spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) {
		o.TracerProvider = tp
	}
}

// WithStages lets the caller reorder, drop or add stages. It receives the
// default list and returns the list to compose, outermost first.
func WithStages(fn func(defaults []Stage) []Stage) Option {
	return func(o *Options) {
		o.Stages = fn
	}
}

// WithClock overrides the clock used for the certificate expiry check.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

// Client sends requests to one upstream service over mutual TLS.
type Client struct {
	cfg         Config
	creds       *tlsx.Credentials
	transport   *http.Transport
	pipeline    *Pipeline
	baseHeader  http.Header
	unsubscribe func()
}

// New validates cfg, loads credentials and builds the transport and pipeline.
// It performs no network activity.
func New(cfg Config, opts ...Option) (*Client, error) {
	options := Options{
		Logger:         log.Nop(),
		Breakers:       DefaultBreakers,
		MeterProvider:  metricnoop.NewMeterProvider(),
		TracerProvider: tracenoop.NewTracerProvider(),
		Now:            time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidArgument, "clientx.New", err)
	}

	logger := options.Logger.With(log.Str("service", cfg.ServiceName))

	creds, err := tlsx.LoadCredentials(cfg.Paths())
	if err != nil {
		logger.Error(err, "credential load failed")
		return nil, err
	}
	checkExpiry(logger, creds, options.Now(), cfg.CertExpiryWarning)

	serverName := cfg.ServerName
	if serverName == "" {
		serverName = base.Hostname()
	}
	tlsConfig, err := tlsx.NewConfigBuilder().
		WithMinVersion(cfg.MinTLSVersion).
		WithServerName(serverName).
		WithCredentials(creds).
		Build()
	if err != nil {
		return nil, errors.Wrap(errors.CodeInvalidArgument, "clientx.New", err)
	}
	transport := tlsx.NewTransport(tlsConfig, cfg.TransportOptions())

	metrics, err := NewMetrics(options.MeterProvider)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, "clientx.New", err)
	}
	service := cfg.ServiceName
	unsubscribe := options.Breakers.Subscribe(func(name string, from, to gobreaker.State) {
		if name != service {
			return
		}
		metrics.RecordBreakerTransition(name, from, to)
		logger.Warn("circuit breaker state changed", log.Str("from", from.String()), log.Str("to", to.String()))
	})

	s := &sender{
		client:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		base:     base,
		maxBytes: cfg.MaxResponseBytes,
	}

	stages := DefaultStages(StageDeps{
		Service:  service,
		Breakers: options.Breakers,
		Breaker:  cfg.BreakerSettings(),
		Logger:   logger,
		Metrics:  metrics,
		Tracer:   options.TracerProvider.Tracer(instrumentationName),
	})
	if options.Stages != nil {
		stages = options.Stages(stages)
	}

	baseHeader := http.Header{}
	baseHeader.Set("Accept", "application/json")
	baseHeader.Set("User-Agent", cfg.UserAgent)

	logger.Info("client ready",
		log.Str("base_url", cfg.BaseURL),
		log.Str("credentials", creds.String()),
	)

	return &Client{
		cfg:         cfg,
		creds:       creds,
		transport:   transport,
		pipeline:    NewPipeline(s.send, stages...),
		baseHeader:  baseHeader,
		unsubscribe: unsubscribe,
	}, nil
}

// StageDeps carries what the default stages need.
type StageDeps struct {
	Service  string
	Breakers *BreakerRegistry
	Breaker  BreakerSettings
	Logger   log.Logger
	Metrics  *Metrics
	Tracer   trace.Tracer
}

// DefaultStages returns the standard pipeline, outermost first:
// tracing, metrics, breaker, classifier, encoder, logger, normalizer, decoder.
// Tracing and metrics sit outside the breaker so short-circuited calls are
// still recorded.
func DefaultStages(d StageDeps) []Stage {
	return []Stage{
		TracingStage(d.Tracer),
		d.Metrics.Stage(),
		BreakerStage(d.Breakers, d.Service, d.Breaker, d.Logger),
		ClassifierStage(),
		EncoderStage(),
		LoggerStage(d.Logger),
		NormalizerStage(),
		DecoderStage(),
	}
}

func checkExpiry(logger log.Logger, creds *tlsx.Credentials, now time.Time, warn time.Duration) {
	notAfter := creds.Leaf.NotAfter.UTC().Format(time.RFC3339)
	switch {
	case creds.Expired(now):
		logger.Error(nil, "client certificate has expired", log.Str("not_after", notAfter))
	case creds.ExpiresWithin(now, warn):
		logger.Warn("client certificate expires soon",
			log.Str("not_after", notAfter),
			log.Dur("remaining", creds.Leaf.NotAfter.Sub(now)),
		)
	}
}

// Do performs one round trip. It returns either a response with a 2xx status
// or exactly one classified error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.New(errors.CodeInvalidArgument, "request is nil")
	}
	ctx, meta := identity.EnsureMeta(ctx)

	header := c.baseHeader.Clone()
	for k, vs := range req.Header {
		header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	header.Set("X-Request-Id", meta.RequestID)

	call := &Call{
		Request:   req,
		Service:   c.cfg.ServiceName,
		Method:    req.method(),
		Header:    header,
		RequestID: meta.RequestID,
		Started:   time.Now(),
	}
	return c.pipeline.Handle(ctx, call)
}

// Config returns the effective configuration, defaults applied.
func (c *Client) Config() Config { return c.cfg }

// Credentials returns the loaded credential bundle.
func (c *Client) Credentials() *tlsx.Credentials { return c.creds }

// Stages lists the pipeline stages, outermost first.
func (c *Client) Stages() []string { return c.pipeline.Names() }

// Close releases idle pooled connections and detaches breaker listeners.
// Calls in flight are not interrupted.
func (c *Client) Close() error {
	c.unsubscribe()
	c.transport.CloseIdleConnections()
	return nil
}
