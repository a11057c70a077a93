package clientx

import (
	"fmt"
	"net/http"

	"go.eggybyte.com/evss/core/errors"
	"go.eggybyte.com/evss/tlsx"
)

// CredentialLoadError is returned by New when a credential file cannot be loaded.
type CredentialLoadError = tlsx.CredentialLoadError

// TLSError reports a failed handshake or peer verification.
type TLSError struct {
	Service string
	Err     error
}

func (e *TLSError) Error() string {
	return fmt.Sprintf("%s: tls handshake failed: %v", e.Service, e.Err)
}

func (e *TLSError) Unwrap() error { return e.Err }

// ErrorCode implements errors.Coder.
func (e *TLSError) ErrorCode() errors.Code { return errors.CodeTLS }

// CircuitOpenError is returned without a network attempt while the breaker
// for Service is open, or while its half-open trial call is in flight.
type CircuitOpenError struct {
	Service string
	Err     error // gobreaker.ErrOpenState or gobreaker.ErrTooManyRequests
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("%s: circuit open: %v", e.Service, e.Err)
}

func (e *CircuitOpenError) Unwrap() error { return e.Err }

// ErrorCode implements errors.Coder.
func (e *CircuitOpenError) ErrorCode() errors.Code { return errors.CodeCircuitOpen }

// TransportError reports a connection, timeout or cancellation failure.
type TransportError struct {
	Service  string
	Timeout  bool
	Canceled bool
	Err      error
}

func (e *TransportError) Error() string {
	kind := "transport failure"
	switch {
	case e.Canceled:
		kind = "request canceled"
	case e.Timeout:
		kind = "request timed out"
	}
	return fmt.Sprintf("%s: %s: %v", e.Service, kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrorCode implements errors.Coder.
func (e *TransportError) ErrorCode() errors.Code { return errors.CodeTransport }

// MalformedResponseError is returned when a 2xx body is not valid JSON.
type MalformedResponseError struct {
	Service string
	Status  int
	Raw     []byte
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response (status %d, %d bytes): %v", e.Service, e.Status, len(e.Raw), e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ErrorCode implements errors.Coder.
func (e *MalformedResponseError) ErrorCode() errors.Code { return errors.CodeMalformedResponse }

// UpstreamStatusError is returned for any non-2xx response.
// Body holds the decoded, normalized body and is nil when it was not JSON.
type UpstreamStatusError struct {
	Service string
	Status  int
	Body    any
	Raw     []byte
	Header  http.Header
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d %s", e.Service, e.Status, http.StatusText(e.Status))
}

// Unwrap returns nil; the status is the cause.
func (e *UpstreamStatusError) Unwrap() error { return nil }

// ErrorCode implements errors.Coder.
func (e *UpstreamStatusError) ErrorCode() errors.Code { return errors.CodeUpstreamStatus }

// ServerError reports whether the upstream failed with a 5xx status.
func (e *UpstreamStatusError) ServerError() bool { return e.Status >= 500 }
