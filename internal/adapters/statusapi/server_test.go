package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ghalamif/TrackGate/internal/domain"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Start(ctx context.Context, cfg domain.AgentConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockService) Stop() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockService) Status() domain.AgentStatus {
	args := m.Called()
	return args.Get(0).(domain.AgentStatus)
}

type fixedReadouts []domain.Readout

func (f fixedReadouts) Recent(n int) []domain.Readout {
	if n > len(f) {
		n = len(f)
	}
	return f[:n]
}

func newTestServer(t *testing.T, svc *MockService, opts ...Option) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	logger, _ := zap.NewDevelopment()
	return NewServer(":0", svc, logger, append([]Option{WithRegistry(reg, reg)}, opts...)...)
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestStartTracking(t *testing.T) {
	svc := new(MockService)
	s := newTestServer(t, svc)

	cfg := domain.AgentConfig{UserID: "u1", IntervalSeconds: 10, EndpointURL: "https://x/y", BypassWindowGate: true}
	svc.On("Start", mock.Anything, cfg).Return(nil)
	svc.On("Status").Return(domain.AgentStatus{State: domain.StateTracking, RunID: "r1", Config: cfg})

	w := do(s, http.MethodPost, "/api/v1/tracking/start",
		`{"user_id":"u1","interval_seconds":10,"endpoint_url":"https://x/y","bypass_window_gate":true}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var st domain.AgentStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "r1", st.RunID)
	assert.Equal(t, domain.StateTracking, st.State)
	svc.AssertExpectations(t)
}

func TestStartTrackingErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid config", &domain.InvalidConfigError{Field: "user_id", Reason: "must not be empty"}, http.StatusBadRequest},
		{"already tracking", domain.ErrAlreadyTracking, http.StatusConflict},
		{"provider unavailable", &domain.ProviderUnavailableError{Provider: "opcua", Err: errors.New("refused")}, http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockService)
			s := newTestServer(t, svc)
			svc.On("Start", mock.Anything, mock.Anything).Return(tc.err)

			w := do(s, http.MethodPost, "/api/v1/tracking/start", `{"user_id":"u1","endpoint_url":"https://x/y"}`)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestStartTrackingRejectsBadBody(t *testing.T) {
	svc := new(MockService)
	s := newTestServer(t, svc)

	w := do(s, http.MethodPost, "/api/v1/tracking/start", `{"user":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodPost, "/api/v1/tracking/start", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestStopTracking(t *testing.T) {
	svc := new(MockService)
	s := newTestServer(t, svc)
	svc.On("Stop").Return(nil)
	svc.On("Status").Return(domain.AgentStatus{State: domain.StateStopped})

	w := do(s, http.MethodPost, "/api/v1/tracking/stop", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"state":"stopped"`)
	svc.AssertExpectations(t)
}

func TestGetStatusAndHealth(t *testing.T) {
	svc := new(MockService)
	s := newTestServer(t, svc)
	svc.On("Status").Return(domain.AgentStatus{
		State:   domain.StateTracking,
		Samples: 3,
		Stats:   domain.UploadStats{SuccessCount: 2, FailureCount: 1},
	})

	w := do(s, http.MethodGet, "/api/v1/tracking/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success_count":2`)
	assert.Contains(t, w.Body.String(), `"failure_count":1`)

	w = do(s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","state":"tracking"}`, w.Body.String())
}

func TestGetReadouts(t *testing.T) {
	svc := new(MockService)
	s := newTestServer(t, svc, WithReadouts(fixedReadouts{{Seq: 3}, {Seq: 2}, {Seq: 1}}))

	w := do(s, http.MethodGet, "/api/v1/tracking/readouts?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []domain.Readout
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].Seq)

	w = do(s, http.MethodGet, "/api/v1/tracking/readouts?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReadoutsDisabled(t *testing.T) {
	s := newTestServer(t, new(MockService))
	w := do(s, http.MethodGet, "/api/v1/tracking/readouts", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	svc := new(MockService)
	s := newTestServer(t, svc)
	svc.On("Status").Return(domain.AgentStatus{State: domain.StateIdle})

	do(s, http.MethodGet, "/api/v1/tracking/status", "")
	w := do(s, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `trackgate_http_requests_total{method="GET",path="/api/v1/tracking/status",status="200"} 1`)
}

func TestWrongMethodIsRejected(t *testing.T) {
	s := newTestServer(t, new(MockService))
	w := do(s, http.MethodGet, "/api/v1/tracking/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
