package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ghalamif/TrackGate/internal/domain"
)

type captured struct {
	method      string
	query       string
	contentType string
	body        string
}

func captureServer(t *testing.T, status int) (*httptest.Server, chan captured) {
	t.Helper()
	got := make(chan captured, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got <- captured{
			method:      r.Method,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			body:        string(b),
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ignored":true}`))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

var fixedNow = time.Date(2024, 3, 4, 8, 15, 30, 123_000_000, time.FixedZone("CST", 8*3600))

func TestUploadRichPayload(t *testing.T) {
	srv, got := captureServer(t, http.StatusCreated)
	u := NewHTTPUploader(srv.Client(), WithClock(func() time.Time { return fixedNow }))

	err := u.Upload(context.Background(),
		domain.AgentConfig{UserID: "u1", EndpointURL: srv.URL + "/y"},
		domain.Sample{Latitude: 25.03, Longitude: 121.56, Accuracy: 4.5, Altitude: 12, Speed: 1.5, Bearing: 90})
	require.NoError(t, err)

	c := <-got
	assert.Equal(t, http.MethodPost, c.method)
	assert.Equal(t, "user_id=u1", c.query)
	assert.Equal(t, "application/json", c.contentType)
	assert.Contains(t, c.body, `"lat":25.03,"lng":121.56`)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.body), &body))
	assert.Equal(t, "2024-03-04T00:15:30.123Z", body["ts"])
	assert.Equal(t, 4.5, body["accuracy"])
	assert.Equal(t, 12.0, body["altitude"])
	assert.Equal(t, 1.5, body["speed"])
	assert.Equal(t, 90.0, body["bearing"])
}

func TestUploadMinimalPayload(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK)
	u := NewHTTPUploader(srv.Client(), WithFormat(PayloadMinimal), WithClock(func() time.Time { return fixedNow }))

	require.NoError(t, u.Upload(context.Background(),
		domain.AgentConfig{UserID: "u1", EndpointURL: srv.URL},
		domain.Sample{Latitude: 25.03, Longitude: 121.56, Speed: 3}))

	c := <-got
	assert.JSONEq(t, `{"lat":25.03,"lng":121.56,"ts":1709511330123}`, c.body)
}

func TestUploadKeepsExistingQuery(t *testing.T) {
	srv, got := captureServer(t, http.StatusOK)
	u := NewHTTPUploader(srv.Client())

	require.NoError(t, u.Upload(context.Background(),
		domain.AgentConfig{UserID: "a b", EndpointURL: srv.URL + "/track?tenant=t1"},
		domain.Sample{}))

	assert.Equal(t, "tenant=t1&user_id=a+b", (<-got).query)
}

func TestUploadNon2xxIsFailure(t *testing.T) {
	for _, status := range []int{http.StatusMovedPermanently, http.StatusBadRequest, http.StatusInternalServerError} {
		srv, _ := captureServer(t, status)
		u := NewHTTPUploader(&http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		})

		err := u.Upload(context.Background(), domain.AgentConfig{UserID: "u1", EndpointURL: srv.URL}, domain.Sample{})
		var ue *domain.UploadError
		require.ErrorAs(t, err, &ue, "status %d", status)
		assert.Equal(t, status, ue.StatusCode)
	}
}

func TestUploadTransportErrorIsFailure(t *testing.T) {
	srv, _ := captureServer(t, http.StatusOK)
	endpoint := srv.URL
	srv.Close()

	err := NewHTTPUploader(nil).Upload(context.Background(), domain.AgentConfig{UserID: "u1", EndpointURL: endpoint}, domain.Sample{})
	var ue *domain.UploadError
	require.ErrorAs(t, err, &ue)
	assert.Zero(t, ue.StatusCode)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestUploadRejectsBadEndpoint(t *testing.T) {
	u := NewHTTPUploader(nil)
	err := u.Upload(context.Background(), domain.AgentConfig{UserID: "u1", EndpointURL: "ftp://x/y"}, domain.Sample{})
	assert.ErrorContains(t, err, "unsupported scheme")
}

func TestUploadRecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	okSrv, _ := captureServer(t, http.StatusOK)
	badSrv, _ := captureServer(t, http.StatusBadGateway)
	u := NewHTTPUploader(nil, WithTracerProvider(tp))

	require.NoError(t, u.Upload(context.Background(), domain.AgentConfig{UserID: "u1", EndpointURL: okSrv.URL}, domain.Sample{}))
	require.Error(t, u.Upload(context.Background(), domain.AgentConfig{UserID: "u1", EndpointURL: badSrv.URL}, domain.Sample{}))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "trackgate.upload", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestParsePayloadFormat(t *testing.T) {
	f, err := ParsePayloadFormat("")
	require.NoError(t, err)
	assert.Equal(t, PayloadRich, f)

	f, err = ParsePayloadFormat("minimal")
	require.NoError(t, err)
	assert.Equal(t, PayloadMinimal, f)

	_, err = ParsePayloadFormat("xml")
	assert.Error(t, err)
}
