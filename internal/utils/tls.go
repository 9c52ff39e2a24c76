package utils

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/voidshard/taskqueue/pkg/errors"
)

// TLSFiles are paths to the PEM files needed to talk TLS to a queue server.
type TLSFiles struct {
	CACert string
	Cert   string
	Key    string

	// ServerName overrides the name we verify the server cert against
	ServerName string
}

// Empty is true if no files were given, in which case no TLS is configured.
func (f *TLSFiles) Empty() bool {
	return f.CACert == "" && f.Cert == "" && f.Key == ""
}

// TLSConfig builds a client tls.Config from the given files, or returns nil if there are none.
func TLSConfig(f *TLSFiles) (*tls.Config, error) {
	if f == nil || f.Empty() {
		return nil, nil
	}
	if (f.Cert == "") != (f.Key == "") {
		return nil, fmt.Errorf("%w tls cert & key must be given together", errors.ErrInvalidArg)
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12, ServerName: f.ServerName}

	if f.Cert != "" {
		pair, err := tls.LoadX509KeyPair(f.Cert, f.Key)
		if err != nil {
			return nil, fmt.Errorf("load tls keypair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{pair}
	}

	if f.CACert != "" {
		pem, err := os.ReadFile(f.CACert)
		if err != nil {
			return nil, fmt.Errorf("read ca cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w no certificates found in %s", errors.ErrInvalidArg, f.CACert)
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
