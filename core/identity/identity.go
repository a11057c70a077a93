// Package identity carries request metadata through a context.
//
// Overview:
//   - Responsibility: Store and retrieve request metadata (request id) from context
//   - Key Types: RequestMeta
//   - Concurrency Model: All functions are safe for concurrent use
//   - Error Semantics: Lookups return a boolean to indicate presence of data
//   - Performance Notes: Context-based storage, one allocation per request
//
// Usage:
//
//	ctx = identity.WithMeta(ctx, &identity.RequestMeta{RequestID: "req-123"})
//	meta, ok := identity.MetaFrom(ctx)
package identity

import (
	"context"

	"github.com/google/uuid"
)

// RequestMeta contains request metadata propagated to the upstream service.
type RequestMeta struct {
	RequestID string // Unique request identifier, forwarded as X-Request-Id
	Origin    string // Name of the calling component, for logs only
}

type contextKey string

const metaKey contextKey = "meta"

// WithMeta stores request metadata in the context.
func WithMeta(ctx context.Context, m *RequestMeta) context.Context {
	return context.WithValue(ctx, metaKey, m)
}

// MetaFrom retrieves request metadata from the context.
func MetaFrom(ctx context.Context) (*RequestMeta, bool) {
	m, ok := ctx.Value(metaKey).(*RequestMeta)
	return m, ok && m != nil
}

// EnsureMeta returns ctx unchanged when it already carries a request id.
// Otherwise it attaches metadata with a freshly generated id.
func EnsureMeta(ctx context.Context) (context.Context, *RequestMeta) {
	if m, ok := MetaFrom(ctx); ok && m.RequestID != "" {
		return ctx, m
	}
	m := &RequestMeta{RequestID: uuid.NewString()}
	if prev, ok := MetaFrom(ctx); ok {
		m.Origin = prev.Origin
	}
	return WithMeta(ctx, m), m
}
