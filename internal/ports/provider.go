package ports

import "github.com/ghalamif/TrackGate/internal/domain"

// LocationProvider pushes samples at a best-effort cadence. Subscribe must not
// block; samples are written to out until Unsubscribe returns.
type LocationProvider interface {
	Name() string
	Subscribe(req domain.SubscriptionRequest, out chan<- domain.Sample) error
	Unsubscribe() error
}
