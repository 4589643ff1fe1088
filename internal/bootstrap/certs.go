package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuemby/agw/internal/gwtypes"
)

// materializeCert writes a listener's TLS material to deterministic,
// name-derived paths under certDir and returns them. Callers skip the
// listener on error rather than aborting startup.
func materializeCert(certDir string, listener gwtypes.Listener) (certPath, keyPath string, err error) {
	if err := os.MkdirAll(certDir, 0o700); err != nil {
		return "", "", fmt.Errorf("create cert dir: %w", err)
	}

	certPath = filepath.Join(certDir, fmt.Sprintf("%s.crt", listener.Name))
	keyPath = filepath.Join(certDir, fmt.Sprintf("%s.key", listener.Name))

	if err := os.WriteFile(certPath, listener.TLS.CertPEM, 0o600); err != nil {
		return "", "", fmt.Errorf("write cert: %w", err)
	}
	if err := os.WriteFile(keyPath, listener.TLS.KeyPEM, 0o600); err != nil {
		return "", "", fmt.Errorf("write key: %w", err)
	}
	return certPath, keyPath, nil
}
