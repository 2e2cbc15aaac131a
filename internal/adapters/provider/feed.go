package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/ghalamif/TrackGate/internal/domain"
	"github.com/ghalamif/TrackGate/internal/ports"
)

// ErrFeedClosed is returned by Push while no subscription is active.
var ErrFeedClosed = errors.New("feed: not subscribed")

// ErrFeedFull is returned by Push when the consumer is not keeping up.
var ErrFeedFull = errors.New("feed: consumer buffer full")

// Feed lets an embedding program push samples it obtains itself, such as fixes
// from a platform location API.
type Feed struct {
	mu  sync.RWMutex
	out chan<- domain.Sample
	req domain.SubscriptionRequest
}

func NewFeed() *Feed { return &Feed{} }

func (f *Feed) Name() string { return "feed" }

func (f *Feed) Subscribe(req domain.SubscriptionRequest, out chan<- domain.Sample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.out != nil {
		return errors.New("feed already subscribed")
	}
	f.out = out
	f.req = req
	return nil
}

func (f *Feed) Unsubscribe() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = nil
	return nil
}

// Request returns the cadence the current subscriber asked for.
func (f *Feed) Request() domain.SubscriptionRequest {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.req
}

// Push hands s to the subscriber without blocking.
func (f *Feed) Push(s domain.Sample) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.out == nil {
		return ErrFeedClosed
	}
	select {
	case f.out <- s:
		return nil
	default:
		return ErrFeedFull
	}
}

// PushWait is Push that waits for buffer space until ctx is done.
func (f *Feed) PushWait(ctx context.Context, s domain.Sample) error {
	f.mu.RLock()
	out := f.out
	f.mu.RUnlock()
	if out == nil {
		return ErrFeedClosed
	}
	select {
	case out <- s:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ ports.LocationProvider = (*Feed)(nil)
