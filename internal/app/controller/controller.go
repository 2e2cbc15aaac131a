// Package controller runs the sampling state machine: it takes samples from the
// location provider, gates them on the upload windows and dispatches uploads.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ghalamif/TrackGate/internal/app/cadence"
	"github.com/ghalamif/TrackGate/internal/app/gate"
	"github.com/ghalamif/TrackGate/internal/app/liveness"
	"github.com/ghalamif/TrackGate/internal/app/tracker"
	"github.com/ghalamif/TrackGate/internal/domain"
	"github.com/ghalamif/TrackGate/internal/ports"
)

const (
	defaultBufferSize   = 16
	defaultReadoutQueue = 64
)

type State int32

const (
	Idle State = iota
	Tracking
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return domain.StateIdle
	case Tracking:
		return domain.StateTracking
	case Stopped:
		return domain.StateStopped
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type Option func(*Controller)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.clock = now
		}
	}
}

// WithLocation sets the timezone the upload windows are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithObserver(o ports.ObserverSink) Option {
	return func(c *Controller) { c.observer = o }
}

// WithReadoutBuffer bounds the readouts waiting for the observer. When the
// observer falls behind, further readouts are dropped and counted.
func WithReadoutBuffer(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.readoutBuf = n
		}
	}
}

// WithBufferSize sets the capacity of the channel handed to the provider.
func WithBufferSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

// run holds everything that lives for one Start..Stop cycle.
type run struct {
	id        string
	cfg       domain.AgentConfig
	startedAt time.Time
	ctx       context.Context

	monitor *cadence.Monitor
	tracker *tracker.UploadTracker

	samples  chan domain.Sample
	readouts chan domain.Readout
	stop     chan struct{}
	done     chan struct{}

	seq         uint64
	latest      *domain.Sample
	lastCadence domain.CadenceInfo
}

// Controller is safe for concurrent use. Each instance owns its own state; two
// controllers never share a running flag.
type Controller struct {
	provider ports.LocationProvider
	settings ports.SettingsStore
	uploader ports.Uploader
	liveness *liveness.Extender
	observer ports.ObserverSink
	obs      ports.Observability

	clock      func() time.Time
	loc        *time.Location
	bufSize    int
	readoutBuf int

	mu     sync.Mutex
	state  State
	cur    *run
	idleTr *tracker.UploadTracker

	uploads   sync.WaitGroup
	notifiers sync.WaitGroup
	inFlight  atomic.Int64
}

// New wires a controller. settings may be nil, in which case no window is configured
// and only AgentConfig.BypassWindowGate lets samples through.
func New(provider ports.LocationProvider, settings ports.SettingsStore, uploader ports.Uploader, ext *liveness.Extender, obs ports.Observability, opts ...Option) *Controller {
	c := &Controller{
		provider:   provider,
		settings:   settings,
		uploader:   uploader,
		liveness:   ext,
		obs:        obs,
		clock:      time.Now,
		loc:        time.Local,
		bufSize:    defaultBufferSize,
		readoutBuf: defaultReadoutQueue,
		idleTr:     tracker.New(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start validates cfg and subscribes to the provider. On an invalid config the
// controller stays where it was. A provider refusal leaves it Stopped.
func (c *Controller) Start(ctx context.Context, cfg domain.AgentConfig) error {
	cfg, err := cfg.Normalize()
	if err != nil {
		c.obs.LogError("tracking_start_rejected", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Tracking {
		return domain.ErrAlreadyTracking
	}

	r := &run{
		id:        uuid.NewString(),
		cfg:       cfg,
		startedAt: c.clock(),
		ctx:       context.WithoutCancel(ctx),
		monitor:   cadence.NewMonitor(cfg.IntervalSeconds),
		tracker:   tracker.New(c.obs),
		samples:   make(chan domain.Sample, c.bufSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	if c.observer != nil {
		r.readouts = make(chan domain.Readout, c.readoutBuf)
	}

	req := cadence.PlanRequest(cfg.IntervalSeconds)
	if err := c.provider.Subscribe(req, r.samples); err != nil {
		c.state = Stopped
		c.obs.SetGauge(ports.MetricTrackingActive, 0)
		perr := &domain.ProviderUnavailableError{Provider: c.provider.Name(), Err: err}
		c.obs.LogError("provider_subscribe_failed", perr, ports.Field{Key: "provider", Value: c.provider.Name()})
		return perr
	}

	c.cur = r
	c.state = Tracking
	c.liveness.Extend()
	c.obs.SetGauge(ports.MetricTrackingActive, 1)
	c.obs.LogInfo("tracking_started",
		ports.Field{Key: "run_id", Value: r.id},
		ports.Field{Key: "user_id", Value: cfg.UserID},
		ports.Field{Key: "interval_seconds", Value: cfg.IntervalSeconds},
		ports.Field{Key: "endpoint", Value: cfg.EndpointURL},
		ports.Field{Key: "bypass_window_gate", Value: cfg.BypassWindowGate},
		ports.Field{Key: "provider", Value: c.provider.Name()},
		ports.Field{Key: "min_interval", Value: req.MinInterval.String()},
	)

	if r.readouts != nil {
		c.notifiers.Add(1)
		go c.notify(r.readouts)
	}
	go c.consume(r)
	return nil
}

// Stop detaches from the provider and releases the liveness resource. Calling it
// when nothing is running only logs a warning. In-flight uploads keep running.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != Tracking {
		st := c.state
		c.mu.Unlock()
		c.obs.LogWarn("tracking_stop_ignored", ports.Field{Key: "state", Value: st.String()})
		return nil
	}
	r := c.cur
	c.state = Stopped
	close(r.stop)
	c.liveness.Release()
	c.mu.Unlock()

	c.obs.SetGauge(ports.MetricTrackingActive, 0)

	var errs []error
	if err := c.provider.Unsubscribe(); err != nil {
		errs = append(errs, fmt.Errorf("unsubscribe %s: %w", c.provider.Name(), err))
	}
	<-r.done

	c.obs.LogInfo("tracking_stopped",
		ports.Field{Key: "run_id", Value: r.id},
		ports.Field{Key: "samples", Value: c.samplesOf(r)},
		ports.Field{Key: "uploads_succeeded", Value: r.tracker.Snapshot().SuccessCount},
		ports.Field{Key: "uploads_failed", Value: r.tracker.Snapshot().FailureCount},
	)
	return errors.Join(errs...)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns the upload counters of the current or most recent run.
func (c *Controller) Stats() domain.UploadStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return c.idleTr.Snapshot()
	}
	return c.cur.tracker.Snapshot()
}

func (c *Controller) Status() domain.AgentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := domain.AgentStatus{
		State:           c.state.String(),
		Stats:           c.idleTr.Snapshot(),
		UploadsInFlight: c.inFlight.Load(),
		Timestamp:       c.clock(),
	}
	if r := c.cur; r != nil {
		st.RunID = r.id
		st.Config = r.cfg
		st.Samples = r.seq
		st.LastCadence = r.lastCadence
		st.Stats = r.tracker.Snapshot()
		st.StartedAt = r.startedAt
		if r.latest != nil {
			s := *r.latest
			st.LatestSample = &s
		}
	}
	return st
}

// WaitUploads blocks until every dispatched upload has finished and the
// observer has seen every queued readout, or ctx is done.
func (c *Controller) WaitUploads(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.uploads.Wait()
		c.notifiers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %d uploads: %w", c.inFlight.Load(), ctx.Err())
	}
}

func (c *Controller) samplesOf(r *run) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return r.seq
}

// consume is the only goroutine that processes samples of r, which keeps the
// cadence state of a run single-threaded. It never waits on the observer.
func (c *Controller) consume(r *run) {
	defer close(r.done)
	if r.readouts != nil {
		defer close(r.readouts)
	}
	for {
		select {
		case <-r.stop:
			return
		case s := <-r.samples:
			select {
			case <-r.stop:
				return
			default:
			}
			c.handleSample(r, s)
		}
	}
}

func (c *Controller) handleSample(r *run, s domain.Sample) {
	c.mu.Lock()
	if c.state != Tracking || c.cur != r {
		c.mu.Unlock()
		return
	}
	now := c.clock()
	if s.ObservedAt.IsZero() {
		s.ObservedAt = now
	}
	info := r.monitor.Observe(s.ObservedAt)
	r.seq++
	seq := r.seq
	c.mu.Unlock()

	c.obs.IncCounter(ports.MetricSamplesReceived, 1)
	if info.HasInterval {
		c.obs.ObserveLatency(ports.MetricSampleInterval, info.ActualIntervalSeconds)
	}
	if info.Anomalous {
		c.obs.IncCounter(ports.MetricCadenceAnomalies, 1)
		c.obs.LogWarn("cadence_anomaly",
			ports.Field{Key: "run_id", Value: r.id},
			ports.Field{Key: "actual_seconds", Value: info.ActualIntervalSeconds},
			ports.Field{Key: "expected_seconds", Value: info.ExpectedIntervalSeconds},
			ports.Field{Key: "tolerance_seconds", Value: info.ToleranceSeconds},
		)
	}

	forward := c.shouldForward(r, now)
	if forward {
		c.obs.IncCounter(ports.MetricSamplesForwarded, 1)
		c.dispatchUpload(r, s)
	} else {
		c.obs.IncCounter(ports.MetricSamplesGated, 1)
	}

	c.mu.Lock()
	if c.state != Tracking || c.cur != r {
		c.mu.Unlock()
		return
	}
	c.liveness.Extend()
	latest := s
	r.latest = &latest
	r.lastCadence = info
	c.mu.Unlock()

	if r.readouts == nil {
		return
	}
	select {
	case r.readouts <- domain.Readout{
		RunID:       r.id,
		Seq:         seq,
		Sample:      s,
		Cadence:     info,
		Stats:       r.tracker.Snapshot(),
		Forwarded:   forward,
		ProcessedAt: now,
	}:
	default:
		c.obs.IncCounter(ports.MetricReadoutsDropped, 1)
		c.obs.LogWarn("readout_dropped",
			ports.Field{Key: "run_id", Value: r.id},
			ports.Field{Key: "seq", Value: seq})
	}
}

// notify hands readouts to the observer until the run's consumer closes ch.
func (c *Controller) notify(ch <-chan domain.Readout) {
	defer c.notifiers.Done()
	for r := range ch {
		c.observer.OnSampleProcessed(r)
	}
}

// shouldForward re-reads the windows and the bypass flag from settings, so
// operators can change them without restarting the run.
func (c *Controller) shouldForward(r *run, now time.Time) bool {
	if r.cfg.BypassWindowGate {
		return true
	}
	if c.settings == nil {
		return false
	}
	bypass, err := c.settings.GetBool(r.ctx, ports.SettingBypassGate)
	if err != nil {
		c.obs.LogError("settings_read_failed", err, ports.Field{Key: "key", Value: ports.SettingBypassGate})
	}
	if bypass {
		return true
	}

	d := gate.Evaluate(now.In(c.loc),
		c.rawWindow(r.ctx, "morning", ports.SettingMorningStart, ports.SettingMorningEnd),
		c.rawWindow(r.ctx, "evening", ports.SettingEveningStart, ports.SettingEveningEnd),
	)
	for _, skipped := range d.Skipped {
		c.obs.IncCounter(ports.MetricMalformedWindows, 1)
		c.obs.LogWarn("window_skipped", ports.Field{Key: "error", Value: skipped.Error()})
	}
	return d.Inside
}

func (c *Controller) rawWindow(ctx context.Context, name, startKey, endKey string) gate.RawWindow {
	return gate.RawWindow{
		Name:  name,
		Start: c.setting(ctx, startKey),
		End:   c.setting(ctx, endKey),
	}
}

// setting reads a string setting; a failed read counts as absent.
func (c *Controller) setting(ctx context.Context, key string) string {
	v, ok, err := c.settings.GetString(ctx, key)
	if err != nil {
		c.obs.LogError("settings_read_failed", err, ports.Field{Key: "key", Value: key})
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// dispatchUpload ships s in the background. The outcome only reaches the run's tracker.
func (c *Controller) dispatchUpload(r *run, s domain.Sample) {
	c.uploads.Add(1)
	c.obs.SetGauge(ports.MetricUploadsInFlight, float64(c.inFlight.Add(1)))

	go func(s domain.Sample) {
		defer c.uploads.Done()
		start := time.Now()
		err := c.uploader.Upload(r.ctx, r.cfg, s)
		c.obs.ObserveLatency(ports.MetricUploadLatency, time.Since(start).Seconds())
		c.obs.SetGauge(ports.MetricUploadsInFlight, float64(c.inFlight.Add(-1)))

		r.tracker.RecordOutcome(err == nil)
		if err != nil {
			c.obs.LogError("upload_failed", err,
				ports.Field{Key: "run_id", Value: r.id},
				ports.Field{Key: "uploader", Value: c.uploader.Name()},
			)
		}
	}(s)
}
