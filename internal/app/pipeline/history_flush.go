package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/TrackGate/internal/ports"
)

const drainTimeout = 5 * time.Second

// RunHistoryPipeline writes queued readouts in batches until ctx is done, then
// drains what is left. A failed batch is logged and dropped; there is no replay.
func RunHistoryPipeline(ctx context.Context, q ports.ReadoutQueue, w ports.HistoryWriter, pol ports.Policy, obs ports.Observability) {
	idle := pol.FlushInterval
	if idle <= 0 {
		idle = 2 * time.Second
	}
	timer := time.NewTimer(idle)
	defer timer.Stop()

	for {
		if flushBatch(ctx, q, w, pol, obs) {
			continue
		}
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
			for flushBatch(drainCtx, q, w, pol, obs) {
			}
			cancel()
			return
		case <-timer.C:
			timer.Reset(idle)
		}
	}
}

// flushBatch writes one batch and reports whether there was anything to write.
func flushBatch(ctx context.Context, q ports.ReadoutQueue, w ports.HistoryWriter, pol ports.Policy, obs ports.Observability) bool {
	batch := q.DequeueBatch(pol.MaxBatchSize)
	if len(batch) == 0 {
		return false
	}
	obs.SetGauge(ports.MetricHistoryQueueDepth, float64(q.Len()))

	if err := w.WriteBatch(ctx, batch); err != nil {
		obs.LogError("history_write_failed", err,
			ports.Field{Key: "writer", Value: w.Name()},
			ports.Field{Key: "readouts", Value: len(batch)})
		obs.IncCounter(ports.MetricHistoryDropped, float64(len(batch)))
		return ctx.Err() == nil
	}
	return true
}
