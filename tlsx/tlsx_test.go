package tlsx

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io"
	"io/fs"
	"math/big"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "go.eggybyte.com/evss/core/errors"
	"go.eggybyte.com/evss/testingx"
)

func paths(p *testingx.PKI) Paths {
	return Paths{Cert: p.ClientCertFile, Key: p.ClientKeyFile, CA: p.CAFile}
}

func TestLoadCredentials(t *testing.T) {
	pki := testingx.NewPKI(t)

	creds, err := LoadCredentials(paths(pki))
	require.NoError(t, err)

	assert.Equal(t, "evss-test-client", creds.Leaf.Subject.CommonName)
	assert.Equal(t, 1, creds.CACount)
	assert.Len(t, creds.Certificate.Certificate, 1)
	assert.NotNil(t, creds.Certificate.PrivateKey)
	assert.Contains(t, creds.String(), `subject="evss-test-client"`)
	assert.NotContains(t, creds.String(), "PRIVATE")
}

func TestLoadCredentials_Failures(t *testing.T) {
	pki := testingx.NewPKI(t)
	garbage := pki.WriteFile(t, "garbage.pem", []byte("not pem at all"))
	missing := filepath.Join(pki.Dir, "absent.pem")

	tests := []struct {
		name     string
		paths    Paths
		artifact Artifact
		path     string
	}{
		{"missing cert", Paths{Cert: missing, Key: pki.ClientKeyFile, CA: pki.CAFile}, ArtifactCert, missing},
		{"empty cert path", Paths{Key: pki.ClientKeyFile, CA: pki.CAFile}, ArtifactCert, ""},
		{"garbage cert", Paths{Cert: garbage, Key: pki.ClientKeyFile, CA: pki.CAFile}, ArtifactCert, garbage},
		{"missing key", Paths{Cert: pki.ClientCertFile, Key: missing, CA: pki.CAFile}, ArtifactKey, missing},
		{"garbage key", Paths{Cert: pki.ClientCertFile, Key: garbage, CA: pki.CAFile}, ArtifactKey, garbage},
		{"key of another certificate", Paths{Cert: pki.ClientCertFile, Key: pki.ServerKeyFile, CA: pki.CAFile}, ArtifactKey, pki.ServerKeyFile},
		{"missing ca", Paths{Cert: pki.ClientCertFile, Key: pki.ClientKeyFile, CA: missing}, ArtifactCA, missing},
		{"garbage ca", Paths{Cert: pki.ClientCertFile, Key: pki.ClientKeyFile, CA: garbage}, ArtifactCA, garbage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := LoadCredentials(tt.paths)
			require.Error(t, err)
			assert.Nil(t, creds)

			var loadErr *CredentialLoadError
			require.True(t, errors.As(err, &loadErr), "got %T", err)
			assert.Equal(t, tt.artifact, loadErr.Artifact)
			assert.Equal(t, tt.path, loadErr.Path)
			assert.Equal(t, coreerrors.CodeCredentialLoad, coreerrors.CodeOf(err))
			assert.Contains(t, err.Error(), string(tt.artifact))
		})
	}
}

func TestLoadCredentials_MissingFileKeepsCause(t *testing.T) {
	pki := testingx.NewPKI(t)
	p := paths(pki)
	p.Cert = filepath.Join(pki.Dir, "nope.pem")

	_, err := LoadCredentials(p)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoadCredentials_KeyMismatch(t *testing.T) {
	pki := testingx.NewPKI(t)
	p := paths(pki)
	p.Key = pki.ServerKeyFile

	_, err := LoadCredentials(p)
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestLoadCredentials_PKCS1Key(t *testing.T) {
	pki := testingx.NewPKI(t)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "rsa-client"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	certFile := pki.WriteFile(t, "rsa-cert.pem", pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	keyFile := pki.WriteFile(t, "rsa-key.pem", pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))

	creds, err := LoadCredentials(Paths{Cert: certFile, Key: keyFile, CA: pki.CAFile})
	require.NoError(t, err)
	assert.Equal(t, "rsa-client", creds.Leaf.Subject.CommonName)
}

func TestLoadCredentials_PKCS8Key(t *testing.T) {
	pki := testingx.NewPKI(t)

	// The server pair is stored as PKCS#8.
	creds, err := LoadCredentials(Paths{Cert: pki.ServerCertFile, Key: pki.ServerKeyFile, CA: pki.CAFile})
	require.NoError(t, err)
	assert.Equal(t, "localhost", creds.Leaf.Subject.CommonName)
}

func TestCredentialsExpiry(t *testing.T) {
	now := time.Now()
	pki := testingx.NewPKI(t, testingx.WithClientValidity(now.Add(-48*time.Hour), now.Add(10*24*time.Hour)))

	creds, err := LoadCredentials(paths(pki))
	require.NoError(t, err)

	assert.True(t, creds.ExpiresWithin(now, 30*24*time.Hour))
	assert.False(t, creds.ExpiresWithin(now, 24*time.Hour))
	assert.False(t, creds.Expired(now))
	assert.True(t, creds.Expired(now.Add(11*24*time.Hour)))
}

func TestConfigBuilder(t *testing.T) {
	pki := testingx.NewPKI(t)
	creds, err := LoadCredentials(paths(pki))
	require.NoError(t, err)

	cfg, err := NewConfigBuilder().
		WithMinVersion(tls.VersionTLS10).
		WithServerName("partner.test").
		WithCredentials(creds).
		Build()
	require.NoError(t, err)

	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion, "minimum version is floored at TLS 1.2")
	assert.Equal(t, "partner.test", cfg.ServerName)
	assert.False(t, cfg.InsecureSkipVerify)
	assert.Same(t, creds.RootCAs, cfg.RootCAs)
	assert.Len(t, cfg.Certificates, 1)

	cfg13, err := NewConfigBuilder().WithMinVersion(tls.VersionTLS13).WithCredentials(creds).Build()
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg13.MinVersion)
}

func TestConfigBuilder_RequiresCredentials(t *testing.T) {
	_, err := NewConfigBuilder().Build()
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	pool := x509.NewCertPool()
	cert := tls.Certificate{Certificate: [][]byte{{1}}}

	tests := []struct {
		name    string
		cfg     *tls.Config
		wantErr bool
	}{
		{"nil", nil, true},
		{"old version", &tls.Config{MinVersion: tls.VersionTLS11, RootCAs: pool, Certificates: []tls.Certificate{cert}}, true},
		{"skip verify", &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: true, RootCAs: pool, Certificates: []tls.Certificate{cert}}, true},
		{"no roots", &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}}, true},
		{"no client cert", &tls.Config{MinVersion: tls.VersionTLS12, RootCAs: pool}, true},
		{"valid", &tls.Config{MinVersion: tls.VersionTLS12, RootCAs: pool, Certificates: []tls.Certificate{cert}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.3")
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), v)

	v, err = ParseVersion("")
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), v)

	_, err = ParseVersion("1.1")
	assert.Error(t, err)
}

func TestNewTransport(t *testing.T) {
	opts := DefaultTransportOptions()
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	tr := NewTransport(cfg, opts)
	assert.Same(t, cfg, tr.TLSClientConfig)
	assert.Equal(t, 10*time.Second, tr.TLSHandshakeTimeout)
	assert.Equal(t, 15*time.Second, tr.ResponseHeaderTimeout)
	assert.Equal(t, 90*time.Second, tr.IdleConnTimeout)
	assert.Equal(t, 100, tr.MaxIdleConns)
	assert.Equal(t, 10, tr.MaxIdleConnsPerHost)
}

func TestTransport_MutualTLS(t *testing.T) {
	pki := testingx.NewPKI(t)
	srv := testingx.NewMTLSServer(t, pki, testingx.JSONHandler(http.StatusOK, `{"ok":true}`))

	creds, err := LoadCredentials(paths(pki))
	require.NoError(t, err)
	cfg, err := NewConfigBuilder().WithCredentials(creds).Build()
	require.NoError(t, err)

	tr := NewTransport(cfg, DefaultTransportOptions())
	defer tr.CloseIdleConnections()

	resp, err := (&http.Client{Transport: tr}).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestTransport_WrongCAIsHandshakeFailure(t *testing.T) {
	pki := testingx.NewPKI(t)
	srv := testingx.NewMTLSServer(t, pki, testingx.JSONHandler(http.StatusOK, `{}`))

	p := paths(pki)
	p.CA = pki.OtherCAFile
	creds, err := LoadCredentials(p)
	require.NoError(t, err)
	cfg, err := NewConfigBuilder().WithCredentials(creds).Build()
	require.NoError(t, err)

	_, err = (&http.Client{Transport: NewTransport(cfg, DefaultTransportOptions())}).Get(srv.URL)
	require.Error(t, err)
	assert.True(t, IsHandshakeFailure(err), "got %v", err)

	var verifyErr *tls.CertificateVerificationError
	assert.True(t, errors.As(err, &verifyErr))
	assert.Zero(t, srv.Requests())
}

func TestIsHandshakeFailure(t *testing.T) {
	assert.False(t, IsHandshakeFailure(nil))
	assert.False(t, IsHandshakeFailure(errors.New("connection refused")))
	assert.True(t, IsHandshakeFailure(x509.UnknownAuthorityError{}))
	assert.True(t, IsHandshakeFailure(errors.New("remote error: tls: bad certificate")))
}
