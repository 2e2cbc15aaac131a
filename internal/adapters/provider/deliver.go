// Package provider holds the location providers the agent can subscribe to.
package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/ghalamif/TrackGate/internal/domain"
)

// deliver hands s to the controller without blocking. A full channel means the
// controller is behind or gone, and the sample is dropped.
func deliver(ctx context.Context, out chan<- domain.Sample, s domain.Sample, log *zap.Logger) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- s:
		return true
	default:
		log.Warn("[Provider] sample dropped, consumer not keeping up",
			zap.Time("observed_at", s.ObservedAt))
		return false
	}
}
