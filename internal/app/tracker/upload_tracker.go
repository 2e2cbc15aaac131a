// Package tracker counts upload outcomes.
package tracker

import (
	"sync/atomic"

	"github.com/ghalamif/TrackGate/internal/domain"
	"github.com/ghalamif/TrackGate/internal/ports"
)

// UploadTracker is safe for concurrent use. Counters only move up until Reset.
type UploadTracker struct {
	success atomic.Uint64
	failure atomic.Uint64
	obs     ports.Observability
}

// New returns a tracker. obs may be nil.
func New(obs ports.Observability) *UploadTracker {
	return &UploadTracker{obs: obs}
}

func (t *UploadTracker) RecordOutcome(success bool) {
	if success {
		t.success.Add(1)
		if t.obs != nil {
			t.obs.IncCounter(ports.MetricUploadsSucceeded, 1)
		}
		return
	}
	t.failure.Add(1)
	if t.obs != nil {
		t.obs.IncCounter(ports.MetricUploadsFailed, 1)
	}
}

func (t *UploadTracker) Snapshot() domain.UploadStats {
	return domain.UploadStats{
		SuccessCount: t.success.Load(),
		FailureCount: t.failure.Load(),
	}
}

// Reset zeroes the counters at the start of a run.
func (t *UploadTracker) Reset() {
	t.success.Store(0)
	t.failure.Store(0)
}
