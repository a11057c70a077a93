package testingx

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	coreerrors "go.eggybyte.com/evss/core/errors"
	"go.eggybyte.com/evss/core/identity"
	"go.eggybyte.com/evss/core/log"
)

func TestMockLogger(t *testing.T) {
	logger := NewMockLogger(t)
	child := logger.With(log.Str("service", "MHVCF"))

	logger.Debug("debug message", "k", 1)
	child.Info("call finished", log.Int("status", 200))
	child.Error(errors.New("boom"), "call failed")

	entries := logger.Entries()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if v, ok := entries[0].Field("k"); !ok || v != 1 {
		t.Errorf("Field(k) = %v, %v", v, ok)
	}
	if v, ok := entries[1].Field("service"); !ok || v != "MHVCF" {
		t.Errorf("bound field missing: %v", entries[1].Fields)
	}
	if v, _ := entries[1].Field("status"); v != 200 {
		t.Errorf("status = %v", v)
	}
	if entries[2].Error == nil || entries[2].Level != "ERROR" {
		t.Errorf("unexpected error entry %+v", entries[2])
	}

	logger.AssertLogged("INFO", "call finished")
	if _, ok := logger.Find("WARN", "call finished"); ok {
		t.Error("Find should match on level")
	}

	logger.Clear()
	if len(child.(*MockLogger).Entries()) != 0 {
		t.Error("Clear should empty the shared store")
	}
}

func TestMockLogger_Concurrency(t *testing.T) {
	logger := NewMockLogger(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.With("worker", i).Info("tick")
		}(i)
	}
	wg.Wait()

	if got := len(logger.Entries()); got != 20 {
		t.Errorf("Expected 20 entries, got %d", got)
	}
}

func TestNewContextWithMeta(t *testing.T) {
	ctx := NewContextWithMeta(t, &identity.RequestMeta{RequestID: "req-1"})
	meta, ok := identity.MetaFrom(ctx)
	if !ok || meta.RequestID != "req-1" {
		t.Errorf("unexpected meta %+v", meta)
	}

	if _, ok := identity.MetaFrom(NewContextWithMeta(t, nil)); ok {
		t.Error("nil meta should leave context empty")
	}
}

func TestAssertCode(t *testing.T) {
	AssertCode(t, coreerrors.New(coreerrors.CodeTLS, "handshake"), coreerrors.CodeTLS)
	AssertNoError(t, nil)
}

func TestNewPKI(t *testing.T) {
	pki := NewPKI(t)

	for _, f := range []string{pki.CAFile, pki.ServerCertFile, pki.ServerKeyFile, pki.ClientCertFile, pki.ClientKeyFile, pki.OtherCAFile} {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("fixture file missing: %v", err)
		}
	}

	roots := x509.NewCertPool()
	roots.AddCert(pki.CA)
	if _, err := pki.ClientCert.Verify(x509.VerifyOptions{
		Roots:     roots,
		KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}); err != nil {
		t.Errorf("client certificate should chain to the CA: %v", err)
	}
	if _, err := pki.ServerCert.Leaf.Verify(x509.VerifyOptions{Roots: roots, DNSName: "127.0.0.1"}); err != nil {
		t.Errorf("server certificate should be valid for 127.0.0.1: %v", err)
	}
}

func TestNewPKI_ClientValidity(t *testing.T) {
	notAfter := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	pki := NewPKI(t, WithClientValidity(time.Now().Add(-time.Hour), notAfter), WithClientCommonName("short-lived"))

	if !pki.ClientCert.NotAfter.Equal(notAfter) {
		t.Errorf("NotAfter = %v, want %v", pki.ClientCert.NotAfter, notAfter)
	}
	if pki.ClientCert.Subject.CommonName != "short-lived" {
		t.Errorf("CN = %q", pki.ClientCert.Subject.CommonName)
	}
}

func TestNewMTLSServer(t *testing.T) {
	pki := NewPKI(t)
	srv := NewMTLSServer(t, pki, JSONHandler(http.StatusOK, `{"ok":true}`))

	clientCert, err := tls.LoadX509KeyPair(pki.ClientCertFile, pki.ClientKeyFile)
	if err != nil {
		t.Fatalf("load client pair: %v", err)
	}
	roots := x509.NewCertPool()
	roots.AddCert(pki.CA)

	withCert := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{
		RootCAs:      roots,
		Certificates: []tls.Certificate{clientCert},
	}}}
	resp, err := withCert.Get(srv.URL)
	if err != nil {
		t.Fatalf("mTLS request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}

	withoutCert := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: roots}}}
	if resp, err := withoutCert.Get(srv.URL); err == nil {
		resp.Body.Close()
		t.Error("request without client certificate should be rejected")
	}

	if srv.Requests() != 1 {
		t.Errorf("Requests() = %d, want 1", srv.Requests())
	}
	if srv.Handshakes() < 2 {
		t.Errorf("Handshakes() = %d, want at least 2", srv.Handshakes())
	}
}
