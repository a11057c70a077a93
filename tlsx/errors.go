package tlsx

import (
	"fmt"

	"go.eggybyte.com/evss/core/errors"
)

// Artifact names one of the three credential files.
type Artifact string

const (
	ArtifactCert Artifact = "cert"
	ArtifactKey  Artifact = "key"
	ArtifactCA   Artifact = "ca"
)

// CredentialLoadError reports a certificate, key or CA bundle that could not
// be read or parsed. The cause is kept for errors.Is/As.
type CredentialLoadError struct {
	Artifact Artifact
	Path     string
	Err      error
}

func (e *CredentialLoadError) Error() string {
	return fmt.Sprintf("load %s credential from %q: %v", e.Artifact, e.Path, e.Err)
}

func (e *CredentialLoadError) Unwrap() error { return e.Err }

// ErrorCode implements errors.Coder.
func (e *CredentialLoadError) ErrorCode() errors.Code { return errors.CodeCredentialLoad }
