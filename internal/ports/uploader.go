package ports

import (
	"context"

	"github.com/ghalamif/TrackGate/internal/domain"
)

// Uploader ships one sample to the collector. A nil error means a 2xx response.
type Uploader interface {
	Upload(ctx context.Context, cfg domain.AgentConfig, s domain.Sample) error
	Name() string
}
