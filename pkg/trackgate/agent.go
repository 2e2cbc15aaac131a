package trackgate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ghalamif/TrackGate/internal/adapters/liveness"
	"github.com/ghalamif/TrackGate/internal/adapters/observability"
	"github.com/ghalamif/TrackGate/internal/adapters/observer"
	"github.com/ghalamif/TrackGate/internal/adapters/provider"
	"github.com/ghalamif/TrackGate/internal/adapters/queue"
	"github.com/ghalamif/TrackGate/internal/adapters/settings"
	"github.com/ghalamif/TrackGate/internal/adapters/sink"
	"github.com/ghalamif/TrackGate/internal/adapters/statusapi"
	"github.com/ghalamif/TrackGate/internal/adapters/transport"
	"github.com/ghalamif/TrackGate/internal/adapters/uploader"
	livenessapp "github.com/ghalamif/TrackGate/internal/app/liveness"
	"github.com/ghalamif/TrackGate/internal/app/controller"
	"github.com/ghalamif/TrackGate/internal/app/pipeline"
	"github.com/ghalamif/TrackGate/internal/logger"
	"github.com/ghalamif/TrackGate/internal/ports"
)

const shutdownTimeout = 5 * time.Second

// AgentOption customizes the dependencies used by Agent.
type AgentOption func(*agentOverrides)

type agentOverrides struct {
	provider      LocationProvider
	settings      SettingsStore
	uploader      Uploader
	liveness      LivenessResource
	observability Observability
	history       HistoryWriter
	observers     []ObserverSink
	logger        *zap.Logger
	registry      *prometheus.Registry
	clock         func() time.Time
	disableServer bool
}

// WithProvider injects a custom location provider (GPS daemon, MQTT, simulators, a Feed).
func WithProvider(p LocationProvider) AgentOption {
	return func(o *agentOverrides) { o.provider = p }
}

// WithSettings replaces the configured settings backend.
func WithSettings(s SettingsStore) AgentOption {
	return func(o *agentOverrides) { o.settings = s }
}

// WithUploader replaces the HTTP uploader.
func WithUploader(u Uploader) AgentOption {
	return func(o *agentOverrides) { o.uploader = u }
}

// WithLiveness bridges the agent to a host wake lock. The default is an in-process lease.
func WithLiveness(r LivenessResource) AgentOption {
	return func(o *agentOverrides) { o.liveness = r }
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) AgentOption {
	return func(o *agentOverrides) { o.observability = obs }
}

// WithHistoryWriter archives readouts to w instead of the configured Postgres table.
func WithHistoryWriter(w HistoryWriter) AgentOption {
	return func(o *agentOverrides) { o.history = w }
}

// WithObserver adds an observer next to the built-in readout log and status board.
func WithObserver(obs ObserverSink) AgentOption {
	return func(o *agentOverrides) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithLogger replaces the logger built from the logging section.
func WithLogger(l *zap.Logger) AgentOption {
	return func(o *agentOverrides) { o.logger = l }
}

// WithRegistry registers the agent's metrics on reg and serves it on /metrics.
func WithRegistry(reg *prometheus.Registry) AgentOption {
	return func(o *agentOverrides) { o.registry = reg }
}

// WithClock overrides the wall clock used for gating.
func WithClock(now func() time.Time) AgentOption {
	return func(o *agentOverrides) { o.clock = now }
}

// WithoutStatusServer skips the HTTP listener. Handler still serves the routes.
func WithoutStatusServer() AgentOption {
	return func(o *agentOverrides) { o.disableServer = true }
}

// Agent wires provider → controller → uploader with observers, the readout
// history archive and the status API, and exposes lifecycle hooks for embedding
// TrackGate inside any Go service.
type Agent struct {
	cfg        *Config
	log        *zap.Logger
	obs        ports.Observability
	controller *controller.Controller
	provider   LocationProvider
	board      *observer.Board
	server     *statusapi.Server
	serve      bool
	tracing    *observability.Tracing

	historyQueue  ports.ReadoutQueue
	historyWriter ports.HistoryWriter
	recorder      *pipeline.HistoryRecorder
	now           func() time.Time
	db            *sql.DB
	redis         *settings.Redis

	mu          sync.Mutex
	started     bool
	cancel      context.CancelFunc
	historyDone chan struct{}
	serverDone  chan struct{}
	gaugeStopCh chan struct{}
}

// NewAgent bootstraps the default adapters (provider by kind, settings backend,
// HTTP uploader, in-process lease, Prometheus observability) and lets
// AgentOption values override any of them.
func NewAgent(cfg *Config, opts ...AgentOption) (*Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides agentOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	log := overrides.logger
	if log == nil {
		var err error
		log, err = logger.NewLogger(cfg.Logging.Level, cfg.Logging.Development)
		if err != nil {
			return nil, err
		}
	}

	reg := overrides.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(reg, log)
	}

	a := &Agent{cfg: cfg, log: log, obs: obs, serve: !overrides.disableServer}

	var err error
	a.tracing, err = observability.InitTracing(context.Background(), observability.TracingConfig{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return nil, err
	}

	prov := overrides.provider
	if prov == nil {
		if prov, err = buildProvider(cfg.Provider, log); err != nil {
			return nil, a.abort(err)
		}
	}

	store := overrides.settings
	if store == nil {
		if store, err = a.buildSettings(cfg.Settings); err != nil {
			return nil, a.abort(err)
		}
	}

	up := overrides.uploader
	if up == nil {
		if up, err = a.buildUploader(cfg.Upload); err != nil {
			return nil, a.abort(err)
		}
	}

	res := overrides.liveness
	if res == nil {
		res = liveness.NewLease(log, liveness.WithOnChange(func(held bool) {
			if !held {
				obs.SetGauge(ports.MetricLivenessHeld, 0)
			}
		}))
	}

	a.board = observer.NewBoard(cfg.History.RecentSize)
	sinks := observer.FanOut{observer.NewLogReadout(log), a.board}

	a.historyWriter = overrides.history
	if a.historyWriter == nil && cfg.History.Enabled() {
		if a.historyWriter, err = a.buildHistory(cfg.History); err != nil {
			return nil, a.abort(err)
		}
	}
	if a.historyWriter != nil {
		a.historyQueue = queue.NewMemQueue(cfg.History.MaxQueueLen)
		a.recorder = pipeline.NewHistoryRecorder(a.historyQueue, cfg.History.Policy, obs)
		sinks = append(sinks, a.recorder)
	}
	sinks = append(sinks, overrides.observers...)

	loc, err := cfg.Agent.Location()
	if err != nil {
		return nil, a.abort(err)
	}

	ctrlOpts := []controller.Option{
		controller.WithLocation(loc),
		controller.WithObserver(sinks),
		controller.WithBufferSize(cfg.Provider.Buffer),
	}
	a.now = time.Now
	if overrides.clock != nil {
		a.now = overrides.clock
		ctrlOpts = append(ctrlOpts, controller.WithClock(overrides.clock))
	}
	extender := livenessapp.NewExtender(res, cfg.Liveness.Hold, obs)
	a.provider = prov
	a.controller = controller.New(prov, store, up, extender, obs, ctrlOpts...)

	a.server = statusapi.NewServer(cfg.Metrics.Addr, a.controller, log,
		statusapi.WithReadouts(a.board),
		statusapi.WithRegistry(reg, reg))

	return a, nil
}

func buildProvider(cfg ProviderConfig, log *zap.Logger) (LocationProvider, error) {
	switch cfg.Kind {
	case "", "simulated":
		return provider.NewSimulatedProvider(cfg.Simulated, log), nil
	case "opcua":
		return provider.NewOPCUAProvider(cfg.OPCUA, log)
	case "feed":
		return provider.NewFeed(), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}

func (a *Agent) buildSettings(cfg SettingsConfig) (SettingsStore, error) {
	switch cfg.Backend {
	case "", "static":
		return settings.NewStatic(cfg.Static), nil
	case "file":
		return settings.NewFile(cfg.File), nil
	case "redis":
		a.redis = settings.NewRedis(cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.redis.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis settings: %w", err)
		}
		return a.redis, nil
	default:
		return nil, fmt.Errorf("unknown settings backend %q", cfg.Backend)
	}
}

func (a *Agent) buildUploader(cfg UploadConfig) (Uploader, error) {
	format, err := uploader.ParsePayloadFormat(cfg.PayloadFormat)
	if err != nil {
		return nil, err
	}
	client, err := transport.BuildClient(cfg.Config)
	if err != nil {
		return nil, err
	}
	return uploader.NewHTTPUploader(client,
		uploader.WithFormat(format),
		uploader.WithTracerProvider(a.tracing.Provider())), nil
}

func (a *Agent) buildHistory(cfg HistoryConfig) (HistoryWriter, error) {
	db, err := sql.Open("postgres", cfg.ConnString)
	if err != nil {
		return nil, err
	}
	a.db = db
	return sink.NewPostgresHistory(db, cfg.Table)
}

// abort releases what NewAgent opened before failing.
func (a *Agent) abort(err error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(err, a.closeResources(ctx))
}

// Start launches the status server and history pipeline, then begins tracking
// when auto_start is set. It returns once everything is running.
func (a *Agent) Start(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("agent is nil")
	}
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return fmt.Errorf("agent already started")
	}
	a.started = true
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.mu.Unlock()

	if a.historyWriter != nil {
		if pg, ok := a.historyWriter.(*sink.PostgresHistory); ok && a.cfg.History.CreateTable {
			if err := pg.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("history schema: %w", err)
			}
		}
		a.historyDone = make(chan struct{})
		go func() {
			defer close(a.historyDone)
			pipeline.RunHistoryPipeline(runCtx, a.historyQueue, a.historyWriter, a.cfg.History.Policy, a.obs)
		}()

		a.gaugeStopCh = make(chan struct{})
		go a.recordQueueGauge(a.gaugeStopCh, time.Second)
	}

	if a.serve {
		a.serverDone = make(chan struct{})
		go func() {
			defer close(a.serverDone)
			if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("[Agent] status server exited", zap.Error(err))
			}
		}()
	}

	a.log.Info("[Agent] started",
		zap.String("provider", a.cfg.Provider.Kind),
		zap.String("settings", a.cfg.Settings.Backend),
		zap.Bool("history", a.historyWriter != nil))

	if a.cfg.Agent.AutoStart {
		return a.controller.Start(ctx, a.cfg.Agent.AgentConfig)
	}
	return nil
}

// Run starts the agent and blocks until ctx is cancelled, then shuts down gracefully.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(err, a.Shutdown(shutdownCtx))
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// StartTracking begins a run with cfg.
func (a *Agent) StartTracking(ctx context.Context, cfg AgentConfig) error {
	return a.controller.Start(ctx, cfg)
}

// StopTracking ends the current run. It is a no-op when not tracking.
func (a *Agent) StopTracking() error {
	return a.controller.Stop()
}

func (a *Agent) Status() AgentStatus { return a.controller.Status() }

func (a *Agent) Stats() UploadStats { return a.controller.Stats() }

// Recent returns up to n readouts, newest first.
func (a *Agent) Recent(n int) []Readout { return a.board.Recent(n) }

// Feed returns the push provider when the agent runs with provider kind "feed"
// or was given a Feed through WithProvider.
func (a *Agent) Feed() (*Feed, bool) {
	f, ok := a.provider.(*Feed)
	return f, ok
}

// Handler serves the status API routes without a listener.
func (a *Agent) Handler() http.Handler { return a.server.Handler() }

// WaitUploads blocks until in-flight uploads finish or ctx ends.
func (a *Agent) WaitUploads(ctx context.Context) error { return a.controller.WaitUploads(ctx) }

// Shutdown stops tracking, waits for in-flight uploads and queued readouts,
// stops the status server, flushes the history archive and releases
// connections. A readout still waiting on a full history queue once ctx ends
// is dropped.
func (a *Agent) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.controller.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := a.controller.WaitUploads(ctx); err != nil {
		errs = append(errs, fmt.Errorf("waiting for uploads: %w", err))
	}
	if a.recorder != nil {
		a.recorder.Close()
	}

	a.mu.Lock()
	cancel := a.cancel
	a.started = false
	a.mu.Unlock()

	if a.gaugeStopCh != nil {
		close(a.gaugeStopCh)
		a.gaugeStopCh = nil
	}

	if a.serverDone != nil {
		if err := a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		<-a.serverDone
		a.serverDone = nil
	}

	if cancel != nil {
		cancel()
	}
	if a.historyDone != nil {
		select {
		case <-a.historyDone:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("history flush: %w", ctx.Err()))
		}
		a.historyDone = nil
	}

	if err := a.closeResources(ctx); err != nil {
		errs = append(errs, err)
	}
	_ = a.log.Sync()

	return errors.Join(errs...)
}

func (a *Agent) closeResources(ctx context.Context) error {
	var errs []error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
		a.db = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, err)
		}
		a.redis = nil
	}
	if a.tracing != nil {
		if err := a.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		a.tracing = nil
	}
	return errors.Join(errs...)
}

func (a *Agent) recordQueueGauge(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			pipeline.ReportQueue(a.historyQueue, a.now(), a.obs)
		}
	}
}
