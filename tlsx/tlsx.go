package tlsx

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"go.eggybyte.com/evss/tlsx/internal"
)

// Paths locates the three credential files.
type Paths struct {
	Cert string // PEM client certificate (leaf first, intermediates may follow)
	Key  string // PEM private key matching Cert
	CA   string // PEM bundle of roots trusted for the server
}

// Credentials is a parsed, cross-checked credential bundle.
type Credentials struct {
	Certificate tls.Certificate
	Leaf        *x509.Certificate
	RootCAs     *x509.CertPool
	CACount     int
}

// String describes the client certificate without exposing key material.
func (c *Credentials) String() string {
	if c == nil || c.Leaf == nil {
		return "credentials<empty>"
	}
	return fmt.Sprintf("credentials<subject=%q issuer=%q not_after=%s roots=%d>",
		c.Leaf.Subject.CommonName, c.Leaf.Issuer.CommonName,
		c.Leaf.NotAfter.UTC().Format(time.RFC3339), c.CACount)
}

// ExpiresWithin reports whether the client certificate expires before now+d.
func (c *Credentials) ExpiresWithin(now time.Time, d time.Duration) bool {
	return c.Leaf.NotAfter.Before(now.Add(d))
}

// Expired reports whether the client certificate is no longer valid at now.
func (c *Credentials) Expired(now time.Time) bool {
	return now.After(c.Leaf.NotAfter)
}

// ErrKeyMismatch is the cause when the private key does not belong to the certificate.
var ErrKeyMismatch = errors.New("private key does not match certificate")

// LoadCredentials reads and parses the certificate, key and CA bundle.
// It performs no network activity and writes nothing.
func LoadCredentials(p Paths) (*Credentials, error) {
	certPEM, err := readArtifact(ArtifactCert, p.Cert)
	if err != nil {
		return nil, err
	}
	chain, err := internal.ParseCertificates(certPEM)
	if err != nil {
		return nil, &CredentialLoadError{Artifact: ArtifactCert, Path: p.Cert, Err: err}
	}

	keyPEM, err := readArtifact(ArtifactKey, p.Key)
	if err != nil {
		return nil, err
	}
	key, err := internal.ParsePrivateKey(keyPEM)
	if err != nil {
		return nil, &CredentialLoadError{Artifact: ArtifactKey, Path: p.Key, Err: err}
	}
	if !publicKeysEqual(chain[0].PublicKey, key.Public()) {
		return nil, &CredentialLoadError{Artifact: ArtifactKey, Path: p.Key, Err: ErrKeyMismatch}
	}

	caPEM, err := readArtifact(ArtifactCA, p.CA)
	if err != nil {
		return nil, err
	}
	pool, n, err := internal.ParseCAPool(caPEM)
	if err != nil {
		return nil, &CredentialLoadError{Artifact: ArtifactCA, Path: p.CA, Err: err}
	}

	raw := make([][]byte, len(chain))
	for i, c := range chain {
		raw[i] = c.Raw
	}

	return &Credentials{
		Certificate: tls.Certificate{
			Certificate: raw,
			PrivateKey:  key,
			Leaf:        chain[0],
		},
		Leaf:    chain[0],
		RootCAs: pool,
		CACount: n,
	}, nil
}

func readArtifact(a Artifact, path string) ([]byte, error) {
	if path == "" {
		return nil, &CredentialLoadError{Artifact: a, Path: path, Err: errors.New("path is empty")}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CredentialLoadError{Artifact: a, Path: path, Err: err}
	}
	return data, nil
}

func publicKeysEqual(a, b crypto.PublicKey) bool {
	k, ok := a.(interface{ Equal(crypto.PublicKey) bool })
	return ok && k.Equal(b)
}

// ConfigBuilder builds client TLS configurations with secure defaults.
// Peer verification is always on.
type ConfigBuilder struct {
	config *tls.Config
	creds  *Credentials
}

// NewConfigBuilder creates a builder with a TLS 1.2 floor.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: &tls.Config{
			MinVersion: tls.VersionTLS12,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
				tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
			},
		},
	}
}

// WithMinVersion sets the minimum TLS version. Values below TLS 1.2 are raised to it.
func (b *ConfigBuilder) WithMinVersion(version uint16) *ConfigBuilder {
	if version < tls.VersionTLS12 {
		version = tls.VersionTLS12
	}
	b.config.MinVersion = version
	return b
}

// WithServerName sets the expected server name for SNI and certificate validation.
func (b *ConfigBuilder) WithServerName(serverName string) *ConfigBuilder {
	b.config.ServerName = serverName
	return b
}

// WithCredentials presents creds as the client certificate and trusts its roots.
func (b *ConfigBuilder) WithCredentials(creds *Credentials) *ConfigBuilder {
	b.creds = creds
	return b
}

// Build returns the configured TLS config.
func (b *ConfigBuilder) Build() (*tls.Config, error) {
	if b.creds == nil {
		return nil, errors.New("tlsx: credentials are required")
	}
	cfg := b.config.Clone()
	cfg.Certificates = []tls.Certificate{b.creds.Certificate}
	cfg.RootCAs = b.creds.RootCAs
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateConfig checks that cfg meets the client's security floor.
func ValidateConfig(cfg *tls.Config) error {
	if cfg == nil {
		return errors.New("tlsx: config is nil")
	}
	if cfg.MinVersion < tls.VersionTLS12 {
		return fmt.Errorf("tlsx: minimum TLS version must be 1.2 or higher, got %#x", cfg.MinVersion)
	}
	if cfg.InsecureSkipVerify {
		return errors.New("tlsx: peer verification must not be disabled")
	}
	if cfg.RootCAs == nil {
		return errors.New("tlsx: root CA pool is required")
	}
	if len(cfg.Certificates) == 0 {
		return errors.New("tlsx: client certificate is required")
	}
	return nil
}

// ParseVersion maps "1.2" or "1.3" to a tls version constant.
func ParseVersion(s string) (uint16, error) {
	switch s {
	case "", "1.2", "TLS1.2", "TLSv1.2":
		return tls.VersionTLS12, nil
	case "1.3", "TLS1.3", "TLSv1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("tlsx: unsupported TLS version %q", s)
	}
}

// TransportOptions bounds the connection phases of a transport.
type TransportOptions struct {
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
	IdleConnTimeout       time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
}

// DefaultTransportOptions returns the production connection limits.
func DefaultTransportOptions() TransportOptions {
	return TransportOptions{
		DialTimeout:           10 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
	}
}

// NewTransport returns a pooled transport that speaks only cfg's TLS.
func NewTransport(cfg *tls.Config, opts TransportOptions) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   opts.DialTimeout,
		KeepAlive: opts.KeepAlive,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       cfg,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		IdleConnTimeout:       opts.IdleConnTimeout,
		MaxIdleConns:          opts.MaxIdleConns,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		MaxConnsPerHost:       opts.MaxConnsPerHost,
	}
}

// IsHandshakeFailure reports whether err was caused by the TLS handshake or
// by peer certificate verification.
func IsHandshakeFailure(err error) bool {
	return internal.IsHandshakeFailure(err)
}
