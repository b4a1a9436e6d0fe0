// Package transport builds TLS settings and an HTTP/2 client for servers that
// require mutual TLS. The same *tls.Config serves the REST client and the push
// channel.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"

	"github.com/rickgao/camsync/internal/config"
)

// ErrNoCertificate is returned when only one of the certificate and key is set.
var ErrNoCertificate = errors.New("client certificate and key must both be set")

// BuildTLSConfig loads the client certificate and, when set, a CA bundle that
// replaces the system roots. TLS 1.3 is required.
func BuildTLSConfig(cfg config.TLSConfig) (*tls.Config, error) {
	if !cfg.Enabled() {
		return nil, ErrNoCertificate
	}

	clientCert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{clientCert},
		MinVersion:   tls.VersionTLS13,
	}

	if cfg.CAPath != "" {
		caCert, err := os.ReadFile(cfg.CAPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate %s", cfg.CAPath)
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

// BuildHTTP2Client returns an HTTP/2-only client using tlsConfig.
func BuildHTTP2Client(tlsConfig *tls.Config, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			TLSClientConfig: tlsConfig,
		},
		Timeout: timeout,
	}
}
