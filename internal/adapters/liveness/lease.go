// Package liveness provides an in-process LivenessResource.
package liveness

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ghalamif/TrackGate/internal/ports"
)

// Lease is a held-until-expiry token. On hosts without a suspend API it marks the
// agent as busy for health checks; OnChange lets callers bridge it to a real
// inhibitor such as a systemd lock.
type Lease struct {
	log      *zap.Logger
	onChange func(held bool)

	mu        sync.Mutex
	held      bool
	expiresAt time.Time
	timer     *time.Timer
	gen       uint64
}

type LeaseOption func(*Lease)

// WithOnChange registers a callback fired when the lease is taken or lapses.
// It runs outside the lease lock.
func WithOnChange(fn func(held bool)) LeaseOption {
	return func(l *Lease) { l.onChange = fn }
}

func NewLease(logger *zap.Logger, opts ...LeaseOption) *Lease {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Lease{log: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lease) Acquire(d time.Duration) error {
	if d <= 0 {
		return errors.New("lease: duration must be positive")
	}
	l.mu.Lock()
	if l.timer != nil {
		l.timer.Stop()
	}
	l.gen++
	gen := l.gen
	wasHeld := l.held
	l.held = true
	l.expiresAt = time.Now().Add(d)
	l.timer = time.AfterFunc(d, func() { l.expire(gen) })
	l.mu.Unlock()

	if !wasHeld {
		l.notify(true)
	}
	return nil
}

func (l *Lease) Release() error {
	l.mu.Lock()
	if !l.held {
		l.mu.Unlock()
		return nil
	}
	l.clear()
	l.mu.Unlock()

	l.notify(false)
	return nil
}

func (l *Lease) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// ExpiresAt is zero while the lease is not held.
func (l *Lease) ExpiresAt() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.expiresAt
}

func (l *Lease) expire(gen uint64) {
	l.mu.Lock()
	if gen != l.gen || !l.held {
		l.mu.Unlock()
		return
	}
	l.clear()
	l.mu.Unlock()

	l.log.Info("[Liveness] lease lapsed, no samples within hold duration")
	l.notify(false)
}

func (l *Lease) clear() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.gen++
	l.held = false
	l.expiresAt = time.Time{}
}

func (l *Lease) notify(held bool) {
	if l.onChange != nil {
		l.onChange(held)
	}
}

var _ ports.LivenessResource = (*Lease)(nil)
