// Package observer holds ObserverSink implementations for operator displays.
package observer

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ghalamif/TrackGate/internal/domain"
	"github.com/ghalamif/TrackGate/internal/ports"
)

// FanOut forwards every readout to each sink in order.
type FanOut []ports.ObserverSink

func (f FanOut) OnSampleProcessed(r domain.Readout) {
	for _, s := range f {
		if s != nil {
			s.OnSampleProcessed(r)
		}
	}
}

// LogReadout writes one debug line per readout, the console equivalent of a
// notification showing the latest fix and upload counts.
type LogReadout struct {
	log *zap.Logger
}

func NewLogReadout(logger *zap.Logger) *LogReadout {
	return &LogReadout{log: logger}
}

func (l *LogReadout) OnSampleProcessed(r domain.Readout) {
	fields := []zap.Field{
		zap.String("run_id", r.RunID),
		zap.Uint64("seq", r.Seq),
		zap.Float64("lat", r.Sample.Latitude),
		zap.Float64("lng", r.Sample.Longitude),
		zap.Float64("accuracy", r.Sample.Accuracy),
		zap.Bool("forwarded", r.Forwarded),
		zap.Uint64("uploads_ok", r.Stats.SuccessCount),
		zap.Uint64("uploads_failed", r.Stats.FailureCount),
	}
	if r.Cadence.HasInterval {
		fields = append(fields, zap.Float64("interval_seconds", r.Cadence.ActualIntervalSeconds))
	}
	l.log.Debug("[Readout] sample processed", fields...)
}

// Board keeps the most recent readouts for the status API.
type Board struct {
	mu    sync.RWMutex
	ring  []domain.Readout
	next  int
	count int
}

func NewBoard(size int) *Board {
	if size <= 0 {
		size = 1
	}
	return &Board{ring: make([]domain.Readout, size)}
}

func (b *Board) OnSampleProcessed(r domain.Readout) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ring[b.next] = r
	b.next = (b.next + 1) % len(b.ring)
	if b.count < len(b.ring) {
		b.count++
	}
}

// Recent returns up to n readouts, newest first.
func (b *Board) Recent(n int) []domain.Readout {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > b.count {
		n = b.count
	}
	out := make([]domain.Readout, 0, n)
	for i := 1; i <= n; i++ {
		idx := (b.next - i + len(b.ring)) % len(b.ring)
		out = append(out, b.ring[idx])
	}
	return out
}

var (
	_ ports.ObserverSink = FanOut(nil)
	_ ports.ObserverSink = (*LogReadout)(nil)
	_ ports.ObserverSink = (*Board)(nil)
)
