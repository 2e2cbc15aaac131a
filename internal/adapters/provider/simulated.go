package provider

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ghalamif/TrackGate/internal/domain"
	"github.com/ghalamif/TrackGate/internal/ports"
)

// SimulatedConfig drives a random walk around an origin, for demos and soak tests.
type SimulatedConfig struct {
	OriginLatitude  float64 `yaml:"origin_latitude"`
	OriginLongitude float64 `yaml:"origin_longitude"`
	// StepMeters bounds how far a single step may move.
	StepMeters float64 `yaml:"step_meters"`
	// Jitter randomly shortens or lengthens the tick, as a fraction of the interval.
	Jitter float64 `yaml:"jitter"`
	Seed   int64   `yaml:"seed"`
}

func (c *SimulatedConfig) ApplyDefaults() {
	if c.StepMeters <= 0 {
		c.StepMeters = 25
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
}

// SimulatedProvider emits a sample per tick of the requested interval.
type SimulatedProvider struct {
	cfg   SimulatedConfig
	log   *zap.Logger
	clock func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSimulatedProvider(cfg SimulatedConfig, logger *zap.Logger) *SimulatedProvider {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedProvider{cfg: cfg, log: logger, clock: time.Now}
}

func (p *SimulatedProvider) Name() string { return "simulated" }

func (p *SimulatedProvider) Subscribe(req domain.SubscriptionRequest, out chan<- domain.Sample) error {
	if req.Interval <= 0 {
		return fmt.Errorf("simulated provider: interval must be positive, got %s", req.Interval)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return fmt.Errorf("simulated provider already subscribed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	seed := p.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	walk := &randomWalk{
		rng:  rand.New(rand.NewSource(seed)),
		lat:  p.cfg.OriginLatitude,
		lng:  p.cfg.OriginLongitude,
		step: p.cfg.StepMeters,
	}

	p.wg.Add(1)
	go p.run(ctx, req.Interval, walk, out)
	return nil
}

func (p *SimulatedProvider) Unsubscribe() error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	p.wg.Wait()
	return nil
}

func (p *SimulatedProvider) run(ctx context.Context, interval time.Duration, walk *randomWalk, out chan<- domain.Sample) {
	defer p.wg.Done()

	timer := time.NewTimer(p.nextDelay(interval, walk.rng))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s := walk.next()
			s.ObservedAt = p.clock()
			deliver(ctx, out, s, p.log)
			timer.Reset(p.nextDelay(interval, walk.rng))
		}
	}
}

func (p *SimulatedProvider) nextDelay(interval time.Duration, rng *rand.Rand) time.Duration {
	if p.cfg.Jitter == 0 {
		return interval
	}
	f := 1 + p.cfg.Jitter*(2*rng.Float64()-1)
	d := time.Duration(float64(interval) * f)
	if d <= 0 {
		return time.Millisecond
	}
	return d
}

const metersPerDegree = 111_320.0

type randomWalk struct {
	rng      *rand.Rand
	lat, lng float64
	step     float64
	bearing  float64
}

func (w *randomWalk) next() domain.Sample {
	dist := w.step * w.rng.Float64()
	w.bearing = math.Mod(w.bearing+w.rng.Float64()*90-45+360, 360)
	rad := w.bearing * math.Pi / 180

	w.lat += dist * math.Cos(rad) / metersPerDegree
	cosLat := math.Cos(w.lat * math.Pi / 180)
	if cosLat > 1e-6 {
		w.lng += dist * math.Sin(rad) / (metersPerDegree * cosLat)
	}
	w.lat = math.Max(-90, math.Min(90, w.lat))
	w.lng = math.Mod(w.lng+540, 360) - 180

	return domain.Sample{
		Latitude:  w.lat,
		Longitude: w.lng,
		Accuracy:  3 + w.rng.Float64()*12,
		Altitude:  20 + w.rng.Float64()*5,
		Speed:     dist,
		Bearing:   w.bearing,
	}
}

var _ ports.LocationProvider = (*SimulatedProvider)(nil)
