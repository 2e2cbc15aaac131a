// Package liveness keeps the host liveness resource held while samples keep arriving.
package liveness

import (
	"time"

	"github.com/ghalamif/TrackGate/internal/ports"
)

// DefaultHold is how long one sample keeps the agent awake.
const DefaultHold = 10 * time.Minute

// Extender pushes the liveness resource's expiry forward on every call to Extend.
// If samples stop for longer than the hold duration the resource lapses; that is expected.
type Extender struct {
	res  ports.LivenessResource
	hold time.Duration
	obs  ports.Observability
}

func NewExtender(res ports.LivenessResource, hold time.Duration, obs ports.Observability) *Extender {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Extender{res: res, hold: hold, obs: obs}
}

// Extend acquires the resource for the hold duration, releasing it first if held.
func (e *Extender) Extend() {
	if e.res.IsHeld() {
		if err := e.res.Release(); err != nil {
			e.obs.LogError("liveness_release_failed", err)
		}
	}
	if err := e.res.Acquire(e.hold); err != nil {
		e.obs.LogError("liveness_acquire_failed", err, ports.Field{Key: "hold", Value: e.hold.String()})
		return
	}
	e.obs.SetGauge(ports.MetricLivenessHeld, 1)
}

// Release drops the resource if it is held.
func (e *Extender) Release() {
	if !e.res.IsHeld() {
		return
	}
	if err := e.res.Release(); err != nil {
		e.obs.LogError("liveness_release_failed", err)
		return
	}
	e.obs.SetGauge(ports.MetricLivenessHeld, 0)
}

func (e *Extender) Hold() time.Duration { return e.hold }
