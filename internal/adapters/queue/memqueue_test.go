package queue

import (
	"testing"
	"time"

	"github.com/ghalamif/TrackGate/internal/domain"
)

func TestMemQueueEnqueueDequeueOrder(t *testing.T) {
	q := NewMemQueue(4)

	r1 := domain.Readout{RunID: "run", Seq: 1}
	r2 := domain.Readout{RunID: "run", Seq: 2}

	if !q.Enqueue(r1) || !q.Enqueue(r2) {
		t.Fatalf("expected successful enqueue")
	}

	batch := q.DequeueBatch(1)
	if len(batch) != 1 || batch[0].Seq != 1 {
		t.Fatalf("unexpected first batch: %+v", batch)
	}

	remaining := q.DequeueBatch(10)
	if len(remaining) != 1 || remaining[0].Seq != 2 {
		t.Fatalf("unexpected second batch: %+v", remaining)
	}

	if q.Len() != 0 {
		t.Fatalf("queue should be empty, got %d", q.Len())
	}
	if q.DequeueBatch(5) != nil {
		t.Fatalf("expected nil batch from empty queue")
	}
}

func TestMemQueueCapacity(t *testing.T) {
	q := NewMemQueue(2)

	r := domain.Readout{RunID: "cap"}

	if !q.Enqueue(r) || !q.Enqueue(r) {
		t.Fatalf("expected enqueue within capacity")
	}
	if q.Enqueue(r) {
		t.Fatalf("enqueue should fail when capacity exceeded")
	}

	q.DequeueBatch(1)
	if !q.Enqueue(r) {
		t.Fatalf("expected enqueue to succeed after dequeue")
	}
}

func TestMemQueueDequeueAllWithZeroMax(t *testing.T) {
	q := NewMemQueue(3)
	for i := uint64(1); i <= 3; i++ {
		q.Enqueue(domain.Readout{Seq: i})
	}
	if got := q.DequeueBatch(0); len(got) != 3 {
		t.Fatalf("expected whole queue, got %d", len(got))
	}
}

func TestMemQueueWrapsAround(t *testing.T) {
	q := NewMemQueue(3)
	for i := uint64(1); i <= 3; i++ {
		q.Enqueue(domain.Readout{Seq: i})
	}
	q.DequeueBatch(2)
	q.Enqueue(domain.Readout{Seq: 4})
	q.Enqueue(domain.Readout{Seq: 5})
	if q.Enqueue(domain.Readout{Seq: 6}) {
		t.Fatalf("expected full ring to refuse enqueue")
	}

	got := q.DequeueBatch(0)
	if len(got) != 3 || got[0].Seq != 3 || got[1].Seq != 4 || got[2].Seq != 5 {
		t.Fatalf("unexpected order after wrap: %+v", got)
	}
}

func TestMemQueueOldestProcessedAt(t *testing.T) {
	q := NewMemQueue(4)
	if _, ok := q.OldestProcessedAt(); ok {
		t.Fatalf("expected no oldest readout on empty queue")
	}

	base := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	q.Enqueue(domain.Readout{Seq: 1, ProcessedAt: base})
	q.Enqueue(domain.Readout{Seq: 2, ProcessedAt: base.Add(30 * time.Second)})

	if at, ok := q.OldestProcessedAt(); !ok || !at.Equal(base) {
		t.Fatalf("expected oldest %v, got %v (ok=%v)", base, at, ok)
	}
	q.DequeueBatch(1)
	if at, _ := q.OldestProcessedAt(); !at.Equal(base.Add(30 * time.Second)) {
		t.Fatalf("expected head to advance, got %v", at)
	}
}
