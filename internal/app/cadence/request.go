package cadence

import (
	"time"

	"github.com/ghalamif/TrackGate/internal/domain"
)

const (
	// intervals at or below this are requested without provider-side throttling
	unthrottledMaxSeconds = 10
	minThrottledInterval  = 5 * time.Second
)

// PlanRequest derives the provider subscription for a configured interval.
// Short intervals ask for no throttling at all; longer ones let the provider
// deliver up to twice as often, but never faster than every five seconds.
// MaxDelay is capped at half the interval so batching never doubles the gap.
func PlanRequest(intervalSeconds int) domain.SubscriptionRequest {
	interval := time.Duration(intervalSeconds) * time.Second

	minInterval := interval
	if intervalSeconds > unthrottledMaxSeconds {
		minInterval = max(minThrottledInterval, interval/2)
	}

	return domain.SubscriptionRequest{
		Interval:    interval,
		MinInterval: minInterval,
		MaxDelay:    interval / 2,
	}
}
