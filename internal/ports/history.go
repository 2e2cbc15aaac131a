package ports

import (
	"context"

	"github.com/ghalamif/TrackGate/internal/domain"
)

// HistoryWriter persists processed readouts for later analysis.
type HistoryWriter interface {
	Name() string
	WriteBatch(ctx context.Context, readouts []domain.Readout) error
}
