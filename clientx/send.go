package clientx

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.eggybyte.com/evss/tlsx"
)

// ErrResponseTooLarge is the cause of a MalformedResponseError for bodies over the configured cap.
var ErrResponseTooLarge = stderrors.New("response body exceeds limit")

// sender is the innermost handler: one HTTP exchange.
type sender struct {
	client   *http.Client
	base     *url.URL
	maxBytes int64
}

func (s *sender) send(ctx context.Context, call *Call) (*Response, error) {
	target := s.resolve(call.Request)

	var body io.Reader
	if call.Payload != nil {
		body = bytes.NewReader(call.Payload)
	}
	req, err := http.NewRequestWithContext(ctx, call.Method, target, body)
	if err != nil {
		return nil, &TransportError{Service: call.Service, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header = call.Header.Clone()

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, call.Service, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, classifyTransport(ctx, call.Service, err)
	}
	if int64(len(raw)) > s.maxBytes {
		// Drain is skipped; the connection is discarded on close.
		raw = raw[:s.maxBytes]
		if !isSuccess(resp.StatusCode) {
			// The truncated body will not decode; the classifier still reports the status.
			return &Response{
				Status:   resp.StatusCode,
				Header:   resp.Header,
				Raw:      raw,
				Duration: time.Since(start),
			}, nil
		}
		return nil, &MalformedResponseError{
			Service: call.Service,
			Status:  resp.StatusCode,
			Raw:     raw,
			Err:     fmt.Errorf("%w (%d bytes)", ErrResponseTooLarge, s.maxBytes),
		}
	}

	return &Response{
		Status:   resp.StatusCode,
		Header:   resp.Header,
		Raw:      raw,
		Duration: time.Since(start),
	}, nil
}

// resolve joins the request path and query onto the base URL.
func (s *sender) resolve(r *Request) string {
	u := *s.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(r.Path, "/")
	u.RawPath = ""
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}
	return u.String()
}

// classifyTransport maps an exchange failure to the error taxonomy.
// Cancellation and timeouts are checked before TLS so that a handshake that
// runs out of time is reported as a timeout.
func classifyTransport(ctx context.Context, service string, err error) error {
	switch {
	case stderrors.Is(ctx.Err(), context.Canceled) || stderrors.Is(err, context.Canceled):
		return &TransportError{Service: service, Canceled: true, Err: err}
	case isTimeout(err):
		return &TransportError{Service: service, Timeout: true, Err: err}
	case tlsx.IsHandshakeFailure(err):
		return &TLSError{Service: service, Err: err}
	default:
		return &TransportError{Service: service, Err: err}
	}
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
