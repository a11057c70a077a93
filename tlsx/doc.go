// Package tlsx loads mutual-TLS credentials and builds hardened client
// transports.
//
// # Overview
//
// LoadCredentials reads a client certificate, its private key and a root CA
// bundle from disk and returns them parsed and cross-checked. Any failure is
// a *CredentialLoadError naming the artifact and path. ConfigBuilder turns a
// credential bundle into a *tls.Config with a TLS 1.2 floor and peer
// verification that cannot be switched off. NewTransport wraps that config in
// a pooled *http.Transport with bounded dial, handshake and header timeouts.
//
// # Usage
//
//	creds, err := tlsx.LoadCredentials(tlsx.Paths{Cert: c, Key: k, CA: ca})
//	if err != nil {
//		return err
//	}
//	cfg, err := tlsx.NewConfigBuilder().WithCredentials(creds).Build()
//	transport := tlsx.NewTransport(cfg, tlsx.DefaultTransportOptions())
//
// Credential material never appears in logs: Credentials.String describes
// only the subject and validity window.
package tlsx
