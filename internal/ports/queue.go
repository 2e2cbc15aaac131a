package ports

import (
	"time"

	"github.com/ghalamif/TrackGate/internal/domain"
)

type ReadoutQueue interface {
	Enqueue(r domain.Readout) bool
	DequeueBatch(max int) []domain.Readout
	Len() int
	// OldestProcessedAt is false when the queue is empty.
	OldestProcessedAt() (time.Time, bool)
}
