// Package statusapi exposes the operator control and status surface over HTTP.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ghalamif/TrackGate/internal/domain"
)

// TrackingService is the part of the controller the API drives.
type TrackingService interface {
	Start(ctx context.Context, cfg domain.AgentConfig) error
	Stop() error
	Status() domain.AgentStatus
}

// ReadoutSource serves recent readouts, newest first.
type ReadoutSource interface {
	Recent(n int) []domain.Readout
}

type Option func(*Server)

func WithReadouts(src ReadoutSource) Option {
	return func(s *Server) { s.readouts = src }
}

// WithRegistry serves /metrics from g and registers the HTTP request metrics on reg.
func WithRegistry(reg prometheus.Registerer, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.registerer = reg
		s.gatherer = g
	}
}

type Server struct {
	server     *http.Server
	router     *mux.Router
	service    TrackingService
	readouts   ReadoutSource
	logger     *zap.Logger
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewServer(addr string, service TrackingService, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := mux.NewRouter()

	s := &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		router:     router,
		service:    service,
		logger:     logger,
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trackgate_http_requests_total",
		Help: "Status API requests by method, route and status.",
	}, []string{"method", "path", "status"})
	s.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trackgate_http_request_duration_seconds",
		Help:    "Status API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
	s.registerer.MustRegister(s.requests, s.duration)

	router.Use(s.metricsMiddleware)
	router.Use(s.loggingMiddleware)

	router.HandleFunc("/healthz", s.healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/tracking/start", s.startTracking).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/tracking/stop", s.stopTracking).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/tracking/status", s.getStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/tracking/readouts", s.getReadouts).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return s
}

// Handler is the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Addr() string { return s.server.Addr }

// Start blocks serving until Shutdown. It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("[StatusAPI] listening", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("[StatusAPI] shutting down")
	return s.server.Shutdown(ctx)
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		s.requests.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		s.duration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.Debug("[StatusAPI] request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("ip", r.RemoteAddr),
			zap.Int("status", rw.statusCode),
			zap.Int("response_size", rw.size),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  s.service.Status().State,
	})
}

func (s *Server) startTracking(w http.ResponseWriter, r *http.Request) {
	var cfg domain.AgentConfig
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.service.Start(r.Context(), cfg); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrInvalidConfig):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrAlreadyTracking):
			status = http.StatusConflict
		case errors.Is(err, domain.ErrProviderUnavailable):
			status = http.StatusServiceUnavailable
		default:
			s.logger.Error("[StatusAPI] start failed", zap.Error(err))
		}
		s.writeError(w, status, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) stopTracking(w http.ResponseWriter, _ *http.Request) {
	if err := s.service.Stop(); err != nil {
		s.logger.Error("[StatusAPI] stop failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) getReadouts(w http.ResponseWriter, r *http.Request) {
	if s.readouts == nil {
		s.writeError(w, http.StatusNotFound, "readout history not enabled")
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	s.writeJSON(w, http.StatusOK, s.readouts.Recent(limit))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("[StatusAPI] failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
