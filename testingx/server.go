package testingx

import (
	"crypto/tls"
	"io"
	stdlog "log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// MTLSServer is an httptest server that requires and verifies client certificates.
type MTLSServer struct {
	*httptest.Server

	handshakes atomic.Int64
	requests   atomic.Int64
}

// Handshakes returns the number of TLS handshakes the server attempted.
func (s *MTLSServer) Handshakes() int64 { return s.handshakes.Load() }

// Requests returns the number of HTTP requests that reached the handler.
func (s *MTLSServer) Requests() int64 { return s.requests.Load() }

// ServerOption adjusts the server's TLS configuration before it starts.
type ServerOption func(*tls.Config)

// WithTLSVersions restricts the protocol versions the server negotiates.
func WithTLSVersions(minVersion, maxVersion uint16) ServerOption {
	return func(c *tls.Config) {
		c.MinVersion = minVersion
		c.MaxVersion = maxVersion
	}
}

// NewMTLSServer starts a TLS server presenting pki's server certificate and
// accepting only clients signed by pki's CA. It is closed on test cleanup.
func NewMTLSServer(t testing.TB, pki *PKI, handler http.Handler, opts ...ServerOption) *MTLSServer {
	t.Helper()

	s := &MTLSServer{}
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		handler.ServeHTTP(w, r)
	}))
	srv.TLS = &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{pki.ServerCert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pki.ClientPool,
		GetConfigForClient: func(*tls.ClientHelloInfo) (*tls.Config, error) {
			s.handshakes.Add(1)
			return nil, nil
		},
	}
	for _, opt := range opts {
		opt(srv.TLS)
	}
	// Rejected handshakes are expected in tests; keep them out of the output.
	srv.Config.ErrorLog = stdlog.New(io.Discard, "", 0)
	srv.StartTLS()
	t.Cleanup(srv.Close)

	s.Server = srv
	return s
}

// JSONHandler replies with status and body as application/json.
func JSONHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
}
