package internal

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"strings"
)

// IsHandshakeFailure reports whether err comes from the TLS handshake or
// from peer certificate verification.
func IsHandshakeFailure(err error) bool {
	if err == nil {
		return false
	}

	var (
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
		alertErr    tls.AlertError
		recordErr   tls.RecordHeaderError
	)
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr),
		errors.As(err, &alertErr),
		errors.As(err, &recordErr):
		return true
	}

	// Alerts received from the peer are not always typed.
	msg := err.Error()
	return strings.Contains(msg, "tls: ") || strings.Contains(msg, "x509: ")
}
