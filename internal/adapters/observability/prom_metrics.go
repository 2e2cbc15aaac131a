package observability

import (
	"go.uber.org/zap"

	"github.com/ghalamif/TrackGate/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// PromObs implements ports.Observability with Prometheus collectors and a zap logger.
// Unknown metric names are ignored.
type PromObs struct {
	log      *zap.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the agent's collectors on reg, or on the default registerer when reg is nil.
func NewPromObs(reg prometheus.Registerer, logger *zap.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	received := counter(ports.MetricSamplesReceived, "Samples delivered by the location provider while tracking.")
	forwarded := counter(ports.MetricSamplesForwarded, "Samples dispatched for upload.")
	gated := counter(ports.MetricSamplesGated, "Samples dropped because no upload window was open.")
	anomalies := counter(ports.MetricCadenceAnomalies, "Samples that arrived later than interval plus tolerance.")
	malformed := counter(ports.MetricMalformedWindows, "Window evaluations skipped because a window string was malformed.")
	succeeded := counter(ports.MetricUploadsSucceeded, "Uploads answered with a 2xx status.")
	failed := counter(ports.MetricUploadsFailed, "Uploads that failed or were rejected.")
	historyDrops := counter(ports.MetricHistoryDropped, "Readouts lost by the history buffer.")
	readoutDrops := counter(ports.MetricReadoutsDropped, "Readouts dropped because observers fell behind.")

	inFlight := gauge(ports.MetricUploadsInFlight, "Uploads dispatched and not yet finished.")
	active := gauge(ports.MetricTrackingActive, "1 while a tracking run is active.")
	held := gauge(ports.MetricLivenessHeld, "1 while the liveness resource is held.")
	historyDepth := gauge(ports.MetricHistoryQueueDepth, "Readouts buffered for the history store.")
	historyAge := gauge(ports.MetricHistoryQueueAge, "Age of the oldest readout buffered for the history store.")

	uploadLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricUploadLatency,
		Help:    "Time from dispatch to collector response.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})
	interval := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricSampleInterval,
		Help:    "Observed gap between consecutive samples.",
		Buckets: []float64{1, 5, 10, 15, 30, 45, 60, 120, 300, 600},
	})

	reg.MustRegister(received, forwarded, gated, anomalies, malformed, succeeded, failed, historyDrops,
		readoutDrops, inFlight, active, held, historyDepth, historyAge, uploadLatency, interval)

	return &PromObs{
		log: logger,
		counters: map[string]prometheus.Counter{
			ports.MetricSamplesReceived:  received,
			ports.MetricSamplesForwarded: forwarded,
			ports.MetricSamplesGated:     gated,
			ports.MetricCadenceAnomalies: anomalies,
			ports.MetricMalformedWindows: malformed,
			ports.MetricUploadsSucceeded: succeeded,
			ports.MetricUploadsFailed:    failed,
			ports.MetricHistoryDropped:   historyDrops,
			ports.MetricReadoutsDropped:  readoutDrops,
		},
		gauges: map[string]prometheus.Gauge{
			ports.MetricUploadsInFlight:   inFlight,
			ports.MetricTrackingActive:    active,
			ports.MetricLivenessHeld:      held,
			ports.MetricHistoryQueueDepth: historyDepth,
			ports.MetricHistoryQueueAge:   historyAge,
		},
		histos: map[string]prometheus.Observer{
			ports.MetricUploadLatency:  uploadLatency,
			ports.MetricSampleInterval: interval,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.log.Warn(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func zapFields(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
