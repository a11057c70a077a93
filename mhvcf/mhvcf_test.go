package mhvcf

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.eggybyte.com/evss/clientx"
	coreerrors "go.eggybyte.com/evss/core/errors"
	"go.eggybyte.com/evss/testingx"
)

func testConfig(pki *testingx.PKI, baseURL string) Config {
	return Config{
		CertPath:    pki.ClientCertFile,
		KeyPath:     pki.ClientKeyFile,
		CAPath:      pki.CAFile,
		BaseURL:     baseURL,
		ServiceName: "MHVCF_TEST",
		MinTLS:      "1.2",
	}
}

func newTestClient(t *testing.T, cfg Config, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithClientOptions(clientx.WithBreakers(clientx.NewBreakerRegistry()))}, opts...)
	c, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

type inflightForm struct {
	FormID      string `json:"form_id"`
	LastUpdated int64  `json:"last_updated"`
}

type inflightForms struct {
	InflightForms []inflightForm `json:"inflight_forms"`
}

func TestGetForms(t *testing.T) {
	pki := testingx.NewPKI(t)
	srv := testingx.NewMTLSServer(t, pki, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/wssweb/rest/getInflightForms", r.URL.Path)
		testingx.JSONHandler(http.StatusOK, `{"inflightForms":[{"formId":"21-526EZ","lastUpdated":1700000000}]}`).ServeHTTP(w, r)
	}))
	c := newTestClient(t, testConfig(pki, srv.URL+"/wssweb/rest"))

	resp, err := c.GetForms(context.Background())
	require.NoError(t, err)

	var forms inflightForms
	require.NoError(t, Decode(resp.Body, &forms))
	assert.Equal(t, []inflightForm{{FormID: "21-526EZ", LastUpdated: 1700000000}}, forms.InflightForms)
}

func TestGetForms_WrongCA(t *testing.T) {
	pki := testingx.NewPKI(t)
	srv := testingx.NewMTLSServer(t, pki, testingx.JSONHandler(http.StatusOK, `{}`))
	cfg := testConfig(pki, srv.URL)
	cfg.CAPath = pki.OtherCAFile
	c := newTestClient(t, cfg)

	_, err := c.GetForms(context.Background())
	testingx.AssertCode(t, err, coreerrors.CodeTLS)
	var verifyErr *tls.CertificateVerificationError
	assert.ErrorAs(t, err, &verifyErr)
}

func TestInvoke(t *testing.T) {
	pki := testingx.NewPKI(t)
	srv := testingx.NewMTLSServer(t, pki, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/submitForm", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"formId":"10-10EZ"}`, string(body))
		testingx.JSONHandler(http.StatusOK, `{"confirmationNumber":"abc"}`).ServeHTTP(w, r)
	}))
	c := newTestClient(t, testConfig(pki, srv.URL), WithOperations(map[string]Operation{
		"submit_form": {Method: http.MethodPost, Path: "submitForm"},
	}))

	assert.Equal(t, []string{"get_forms", "submit_form"}, c.Operations())

	resp, err := c.Invoke(context.Background(), "submit_form", map[string]string{"formId": "10-10EZ"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"confirmation_number": "abc"}, resp.Body)
}

func TestInvoke_UnknownOperation(t *testing.T) {
	pki := testingx.NewPKI(t)
	srv := testingx.NewMTLSServer(t, pki, testingx.JSONHandler(http.StatusOK, `{}`))
	c := newTestClient(t, testConfig(pki, srv.URL))

	_, err := c.Invoke(context.Background(), "delete_everything", nil)
	testingx.AssertCode(t, err, coreerrors.CodeInvalidArgument)
	assert.Zero(t, srv.Requests())
}

func TestNew_MissingCredentials(t *testing.T) {
	pki := testingx.NewPKI(t)
	cfg := testConfig(pki, "https://127.0.0.1:1")
	cfg.KeyPath = filepath.Join(pki.Dir, "missing.key")

	_, err := New(cfg)
	testingx.AssertCode(t, err, coreerrors.CodeCredentialLoad)
}

func TestDecode(t *testing.T) {
	var out inflightForm
	err := Decode(map[string]any{"form_id": "x", "last_updated": json.Number("42")}, &out)
	require.NoError(t, err)
	assert.Equal(t, inflightForm{FormID: "x", LastUpdated: 42}, out)

	err = Decode(map[string]any{"form_id": json.Number("7")}, &out)
	testingx.AssertCode(t, err, coreerrors.CodeMalformedResponse)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("EVSS_CERT_FILE_PATH", "/etc/evss/client.crt")
	t.Setenv("EVSS_CERT_KEY_PATH", "/etc/evss/client.key")
	t.Setenv("EVSS_ROOT_CERT_FILE_PATH", "/etc/evss/root.crt")
	t.Setenv("MHVCF_TIMEOUT", "5s")

	cfg, err := LoadConfig(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "/etc/evss/client.crt", cfg.CertPath)
	assert.Equal(t, "/etc/evss/client.key", cfg.KeyPath)
	assert.Equal(t, "/etc/evss/root.crt", cfg.CAPath)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, uint32(5), cfg.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.BreakerCooldown)

	ccfg, err := cfg.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), ccfg.MinTLSVersion)
	assert.Equal(t, "MHVCF", ccfg.ServiceName)
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evss.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
evss:
  cert_file_path: /file/client.crt
  cert_key_path: /file/client.key
  root_cert_file_path: /file/root.crt
mhvcf:
  base_url: https://mhvcf.example.test/rest
  min_tls_version: "1.3"
`), 0o600))
	t.Setenv("EVSS_CERT_KEY_PATH", "/env/client.key")

	cfg, err := LoadConfig(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "/file/client.crt", cfg.CertPath)
	assert.Equal(t, "/env/client.key", cfg.KeyPath)
	assert.Equal(t, "https://mhvcf.example.test/rest", cfg.BaseURL)

	ccfg, err := cfg.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), ccfg.MinTLSVersion)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("EVSS_CERT_FILE_PATH", "")
	t.Setenv("EVSS_CERT_KEY_PATH", "/k")
	t.Setenv("EVSS_ROOT_CERT_FILE_PATH", "/ca")

	_, err := LoadConfig(context.Background(), "")
	testingx.AssertCode(t, err, coreerrors.CodeInvalidArgument)

	t.Setenv("EVSS_CERT_FILE_PATH", "/c")
	t.Setenv("MHVCF_BASE_URL", "http://plain.example.test")
	_, err = LoadConfig(context.Background(), "")
	testingx.AssertCode(t, err, coreerrors.CodeInvalidArgument)
}

func TestClientConfig_BadVersion(t *testing.T) {
	_, err := Config{MinTLS: "1.1"}.ClientConfig()
	testingx.AssertCode(t, err, coreerrors.CodeInvalidArgument)
}
