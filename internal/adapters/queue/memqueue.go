package queue

import (
	"sync"
	"time"

	"github.com/ghalamif/TrackGate/internal/domain"
	"github.com/ghalamif/TrackGate/internal/ports"
)

// MemQueue is a bounded ring of readouts waiting for the history store. It
// remembers when the oldest buffered readout was processed so the agent can
// report how far history lags behind sampling.
type MemQueue struct {
	mu    sync.Mutex
	ring  []domain.Readout
	head  int
	count int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &MemQueue{ring: make([]domain.Readout, capacity)}
}

// Enqueue reports false when the ring is full.
func (q *MemQueue) Enqueue(r domain.Readout) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.ring) {
		return false
	}
	q.ring[(q.head+q.count)%len(q.ring)] = r
	q.count++
	return true
}

// DequeueBatch removes up to max readouts in arrival order. max <= 0 takes
// everything. An empty queue yields nil.
func (q *MemQueue) DequeueBatch(max int) []domain.Readout {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	if max <= 0 || max > q.count {
		max = q.count
	}
	out := make([]domain.Readout, max)
	for i := range out {
		slot := (q.head + i) % len(q.ring)
		out[i] = q.ring[slot]
		q.ring[slot] = domain.Readout{}
	}
	q.head = (q.head + max) % len(q.ring)
	q.count -= max
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// OldestProcessedAt returns the ProcessedAt of the head readout.
func (q *MemQueue) OldestProcessedAt() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return time.Time{}, false
	}
	return q.ring[q.head].ProcessedAt, true
}

var _ ports.ReadoutQueue = (*MemQueue)(nil)
