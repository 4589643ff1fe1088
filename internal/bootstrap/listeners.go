package bootstrap

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	"github.com/cuemby/agw/internal/gwtypes"
)

// fallbackAddr is the well-known plaintext listener installed when the
// bootstrap snapshot's listener set fails to bind entirely, so the process
// stays reachable for health-checking.
const fallbackAddr = ":8080"

// boundListener pairs a running http.Server with its listener name, so
// shutdown can stop the server (which closes its net.Listener) and name it
// in errors.
type boundListener struct {
	name   string
	server *http.Server
}

// openListener materializes TLS material (if any), binds the listener's
// address, and starts serving handler in a background goroutine. It
// returns an error when the TLS material cannot be written or loaded or
// the bind fails; the caller logs any such error and skips the listener
// rather than aborting.
func openListener(certDir string, l gwtypes.Listener, handler http.Handler, onErr func(name string, err error)) (*boundListener, error) {
	addr := fmt.Sprintf("%s:%d", l.Address, l.Port)

	if l.TLS == nil {
		return serveHTTP(l.Name, addr, handler, onErr)
	}

	certPath, keyPath, err := materializeCert(certDir, l)
	if err != nil {
		return nil, fmt.Errorf("materialize tls for %s: %w", l.Name, err)
	}
	return serveHTTPS(l.Name, addr, certPath, keyPath, handler, onErr)
}

func serveHTTP(name, addr string, handler http.Handler, onErr func(name string, err error)) (*boundListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			onErr(name, err)
		}
	}()
	return &boundListener{name: name, server: srv}, nil
}

func serveHTTPS(name, addr, certPath, keyPath string, handler http.Handler, onErr func(name string, err error)) (*boundListener, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load keypair for %s: %w", name, err)
	}

	tlsConfig := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}

	ln, err := tls.Listen("tcp", addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := &http.Server{Addr: addr, Handler: handler, TLSConfig: tlsConfig}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			onErr(name, err)
		}
	}()
	return &boundListener{name: name, server: srv}, nil
}
