package transport

import (
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func protoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Proto", r.Proto)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestBuildClientDefaults(t *testing.T) {
	c, err := BuildClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, c.Timeout)
	assert.IsType(t, &http.Transport{}, c.Transport)
}

func TestBuildClientCleartextHTTP2(t *testing.T) {
	srv := httptest.NewServer(h2c.NewHandler(protoHandler(), &http2.Server{}))
	defer srv.Close()

	c, err := BuildClient(Config{HTTP2: true, Timeout: 5 * time.Second})
	require.NoError(t, err)

	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "HTTP/2.0", resp.Header.Get("X-Proto"))
}

func TestBuildClientHTTP2WithCustomCA(t *testing.T) {
	srv := httptest.NewUnstartedServer(protoHandler())
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	caPath := filepath.Join(t.TempDir(), "ca.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(caPath, pemBytes, 0o600))

	c, err := BuildClient(Config{HTTP2: true, CAFile: caPath})
	require.NoError(t, err)

	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 2, resp.ProtoMajor)
}

func TestBuildClientHTTP2VerifiesHTTPSWithoutTLSFiles(t *testing.T) {
	srv := httptest.NewUnstartedServer(protoHandler())
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	c, err := BuildClient(Config{HTTP2: true, Timeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = c.Get(srv.URL)
	require.Error(t, err)
	assert.ErrorContains(t, err, "x509")
}

func TestBuildClientTLSErrors(t *testing.T) {
	_, err := BuildClient(Config{CertFile: "client.pem"})
	assert.ErrorContains(t, err, "set together")

	_, err = BuildClient(Config{CAFile: filepath.Join(t.TempDir(), "missing.pem")})
	assert.ErrorContains(t, err, "CA certificate")

	bad := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not pem"), 0o600))
	_, err = BuildClient(Config{CAFile: bad})
	assert.ErrorContains(t, err, "parse CA")
}
