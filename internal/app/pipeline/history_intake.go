// Package pipeline moves processed readouts from the sampling path to the history store.
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/TrackGate/internal/domain"
	"github.com/ghalamif/TrackGate/internal/ports"
)

// HistoryRecorder is the ObserverSink end of the history pipeline. It only
// enqueues; RunHistoryPipeline does the writing.
type HistoryRecorder struct {
	q   ports.ReadoutQueue
	pol ports.Policy
	obs ports.Observability

	stop     chan struct{}
	stopOnce sync.Once
}

func NewHistoryRecorder(q ports.ReadoutQueue, pol ports.Policy, obs ports.Observability) *HistoryRecorder {
	return &HistoryRecorder{q: q, pol: pol, obs: obs, stop: make(chan struct{})}
}

func (h *HistoryRecorder) OnSampleProcessed(r domain.Readout) {
	if !enqueueWithPolicy(h.q, r, h.pol, h.obs, h.stop) {
		h.obs.IncCounter(ports.MetricHistoryDropped, 1)
	}
	ReportQueue(h.q, r.ProcessedAt, h.obs)
}

// Close releases an OnSampleProcessed waiting under the "block" policy; that
// readout and every later one is dropped. Safe to call more than once.
func (h *HistoryRecorder) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// ReportQueue publishes the queue length and the age of its oldest readout as of now.
func ReportQueue(q ports.ReadoutQueue, now time.Time, obs ports.Observability) {
	obs.SetGauge(ports.MetricHistoryQueueDepth, float64(q.Len()))
	age := 0.0
	if oldest, ok := q.OldestProcessedAt(); ok && now.After(oldest) {
		age = now.Sub(oldest).Seconds()
	}
	obs.SetGauge(ports.MetricHistoryQueueAge, age)
}

// enqueueWithPolicy applies pol.OnQueueFull when the queue is at capacity.
// "block" retries until space frees up or stop is closed.
func enqueueWithPolicy(q ports.ReadoutQueue, r domain.Readout, pol ports.Policy, obs ports.Observability, stop <-chan struct{}) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for {
		if ok := q.Enqueue(r); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			select {
			case <-stop:
				obs.LogWarn("history_enqueue_abandoned",
					ports.Field{Key: "run_id", Value: r.RunID},
					ports.Field{Key: "seq", Value: r.Seq})
				return false
			case <-time.After(sleep):
			}
		case "drop", "reject":
			obs.LogError("history_queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen),
				ports.Field{Key: "run_id", Value: r.RunID},
				ports.Field{Key: "seq", Value: r.Seq})
			return false
		default:
			obs.LogError("history_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}

var _ ports.ObserverSink = (*HistoryRecorder)(nil)
