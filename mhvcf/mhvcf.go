package mhvcf

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"

	"go.eggybyte.com/evss/clientx"
	"go.eggybyte.com/evss/core/errors"
)

// Operation names accepted by Invoke.
const (
	OpGetForms = "get_forms"
)

// Operation maps an operation name onto an upstream endpoint.
type Operation struct {
	Method string
	Path   string // relative to the base URL
}

// DefaultOperations is the operation table of the partner service.
var DefaultOperations = map[string]Operation{
	OpGetForms: {Method: http.MethodGet, Path: "getInflightForms"},
}

// Option configures a Client.
type Option func(*options)

type options struct {
	operations map[string]Operation
	client     []clientx.Option
}

// WithOperations adds or replaces entries of the operation table.
func WithOperations(ops map[string]Operation) Option {
	return func(o *options) {
		for name, op := range ops {
			o.operations[name] = op
		}
	}
}

// WithClientOptions passes options through to the underlying clientx.Client.
func WithClientOptions(opts ...clientx.Option) Option {
	return func(o *options) {
		o.client = append(o.client, opts...)
	}
}

// Client is the MHVCF partner client.
type Client struct {
	http       *clientx.Client
	operations map[string]Operation
}

// New builds a Client from cfg. Credentials are loaded here; no connection is made.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := options{operations: make(map[string]Operation, len(DefaultOperations))}
	for name, op := range DefaultOperations {
		o.operations[name] = op
	}
	for _, opt := range opts {
		opt(&o)
	}

	ccfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, err
	}
	hc, err := clientx.New(ccfg, o.client...)
	if err != nil {
		return nil, err
	}
	return &Client{http: hc, operations: o.operations}, nil
}

// GetForms returns the veteran's in-flight forms.
func (c *Client) GetForms(ctx context.Context) (*clientx.Response, error) {
	return c.Invoke(ctx, OpGetForms, nil)
}

// Invoke runs the named operation with payload as the JSON body.
// A nil payload sends no body.
func (c *Client) Invoke(ctx context.Context, op string, payload any) (*clientx.Response, error) {
	entry, ok := c.operations[op]
	if !ok {
		return nil, errors.Build(errors.CodeInvalidArgument).
			WithOp("mhvcf.Invoke").
			WithMsgf("unknown operation %q", op).
			Err()
	}
	return c.http.Do(ctx, &clientx.Request{
		Operation: op,
		Method:    entry.Method,
		Path:      entry.Path,
		Body:      payload,
	})
}

// Operations returns the sorted names of the configured operations.
func (c *Client) Operations() []string {
	names := make([]string, 0, len(c.operations))
	for name := range c.operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HTTP returns the underlying transport-level client.
func (c *Client) HTTP() *clientx.Client { return c.http }

// Close releases pooled connections.
func (c *Client) Close() error { return c.http.Close() }

// Decode maps a normalized response body onto target, which should use
// snake_case json tags.
func Decode(body any, target any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.CodeMalformedResponse, "mhvcf.Decode", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return errors.Wrap(errors.CodeMalformedResponse, "mhvcf.Decode", err)
	}
	return nil
}
