// Package transport builds the HTTP client used for uploads.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"
)

// DefaultTimeout bounds a whole upload exchange.
const DefaultTimeout = 30 * time.Second

// Config selects the client flavour. With HTTP2 set the client speaks cleartext
// HTTP/2 (h2c) with prior knowledge to http:// URLs and HTTP/2 over TLS to
// https:// URLs.
type Config struct {
	Timeout  time.Duration `yaml:"timeout"`
	HTTP2    bool          `yaml:"http2"`
	CertFile string        `yaml:"cert_file"`
	KeyFile  string        `yaml:"key_file"`
	CAFile   string        `yaml:"ca_file"`
}

func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

func (c Config) usesTLS() bool {
	return c.CertFile != "" || c.KeyFile != "" || c.CAFile != ""
}

// BuildClient returns an *http.Client for cfg.
func BuildClient(cfg Config) (*http.Client, error) {
	cfg.ApplyDefaults()

	var tlsConfig *tls.Config
	if cfg.usesTLS() {
		var err error
		tlsConfig, err = buildTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
	}

	if !cfg.HTTP2 {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if tlsConfig != nil {
			tr.TLSClientConfig = tlsConfig
		}
		return &http.Client{Transport: tr, Timeout: cfg.Timeout}, nil
	}

	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	tr := &h2Transport{
		tls: &http2.Transport{TLSClientConfig: tlsConfig},
		h2c: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
	return &http.Client{Transport: tr, Timeout: cfg.Timeout}, nil
}

// h2Transport sends http:// requests as h2c with prior knowledge and https://
// requests over TLS with ALPN.
type h2Transport struct {
	tls *http2.Transport
	h2c *http2.Transport
}

func (t *h2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "http" {
		return t.h2c.RoundTrip(req)
	}
	return t.tls.RoundTrip(req)
}

func (t *h2Transport) CloseIdleConnections() {
	t.tls.CloseIdleConnections()
	t.h2c.CloseIdleConnections()
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, fmt.Errorf("cert_file and key_file must be set together")
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CertFile != "" {
		clientCert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{clientCert}
	}

	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}
