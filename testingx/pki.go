package testingx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// PKI is a throwaway certificate authority with one server and one client
// certificate, written as PEM files into a test temp directory.
type PKI struct {
	Dir string

	CAFile         string // root that signed both leaves
	ServerCertFile string
	ServerKeyFile  string
	ClientCertFile string
	ClientKeyFile  string // SEC 1 "EC PRIVATE KEY"
	OtherCAFile    string // unrelated root, for verification failures

	CA         *x509.Certificate
	ServerCert tls.Certificate
	ClientCert *x509.Certificate
	ClientPool *x509.CertPool // roots the server uses to verify clients
}

// PKIOption customizes NewPKI.
type PKIOption func(*pkiOptions)

type pkiOptions struct {
	clientNotBefore time.Time
	clientNotAfter  time.Time
	clientCN        string
}

// WithClientValidity sets the client certificate validity window.
func WithClientValidity(notBefore, notAfter time.Time) PKIOption {
	return func(o *pkiOptions) {
		o.clientNotBefore = notBefore
		o.clientNotAfter = notAfter
	}
}

// WithClientCommonName sets the client certificate subject CN.
func WithClientCommonName(cn string) PKIOption {
	return func(o *pkiOptions) {
		o.clientCN = cn
	}
}

// NewPKI generates the fixture and writes it into t.TempDir().
// The server certificate is valid for 127.0.0.1, ::1 and localhost.
func NewPKI(t testing.TB, opts ...PKIOption) *PKI {
	t.Helper()

	now := time.Now()
	o := pkiOptions{
		clientNotBefore: now.Add(-time.Hour),
		clientNotAfter:  now.Add(365 * 24 * time.Hour),
		clientCN:        "evss-test-client",
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &PKI{Dir: t.TempDir()}

	caKey := newKey(t)
	caTmpl := &x509.Certificate{
		SerialNumber:          serial(t),
		Subject:               pkix.Name{CommonName: "evss-test-root", Organization: []string{"testingx"}},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	p.CA = sign(t, caTmpl, caTmpl, caKey.Public(), caKey)
	p.CAFile = p.writePEM(t, "ca.pem", "CERTIFICATE", p.CA.Raw)
	p.ClientPool = x509.NewCertPool()
	p.ClientPool.AddCert(p.CA)

	serverKey := newKey(t)
	server := sign(t, &x509.Certificate{
		SerialNumber: serial(t),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}, p.CA, serverKey.Public(), caKey)
	p.ServerCertFile = p.writePEM(t, "server-cert.pem", "CERTIFICATE", server.Raw)
	p.ServerKeyFile = p.writePEM(t, "server-key.pem", "PRIVATE KEY", pkcs8(t, serverKey))
	p.ServerCert = tls.Certificate{Certificate: [][]byte{server.Raw}, PrivateKey: serverKey, Leaf: server}

	clientKey := newKey(t)
	p.ClientCert = sign(t, &x509.Certificate{
		SerialNumber: serial(t),
		Subject:      pkix.Name{CommonName: o.clientCN},
		NotBefore:    o.clientNotBefore,
		NotAfter:     o.clientNotAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}, p.CA, clientKey.Public(), caKey)
	p.ClientCertFile = p.writePEM(t, "client-cert.pem", "CERTIFICATE", p.ClientCert.Raw)
	ecDER, err := x509.MarshalECPrivateKey(clientKey)
	if err != nil {
		t.Fatalf("marshal client key: %v", err)
	}
	p.ClientKeyFile = p.writePEM(t, "client-key.pem", "EC PRIVATE KEY", ecDER)

	otherKey := newKey(t)
	otherTmpl := &x509.Certificate{
		SerialNumber:          serial(t),
		Subject:               pkix.Name{CommonName: "unrelated-root"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	other := sign(t, otherTmpl, otherTmpl, otherKey.Public(), otherKey)
	p.OtherCAFile = p.writePEM(t, "other-ca.pem", "CERTIFICATE", other.Raw)

	return p
}

// WriteFile writes data into the fixture directory and returns its path.
func (p *PKI) WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(p.Dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func (p *PKI) writePEM(t testing.TB, name, blockType string, der []byte) string {
	t.Helper()
	return p.WriteFile(t, name, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}))
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func serial(t testing.TB) *big.Int {
	t.Helper()
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	return n
}

func sign(t testing.TB, tmpl, parent *x509.Certificate, pub crypto.PublicKey, key crypto.Signer) *x509.Certificate {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, pub, key)
	if err != nil {
		t.Fatalf("create certificate %q: %v", tmpl.Subject.CommonName, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse certificate: %v", err)
	}
	return cert
}

func pkcs8(t testing.TB, key crypto.Signer) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return der
}
