package liveness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ghalamif/TrackGate/internal/ports"
)

func TestExtendAcquiresWhenFree(t *testing.T) {
	res := &fakeResource{}
	e := NewExtender(res, 0, nopObs{})

	e.Extend()

	assert.True(t, res.held)
	assert.Equal(t, []string{"acquire:10m0s"}, res.calls)
	assert.Equal(t, DefaultHold, e.Hold())
}

func TestExtendReacquiresWhenHeld(t *testing.T) {
	res := &fakeResource{}
	e := NewExtender(res, time.Minute, nopObs{})

	e.Extend()
	e.Extend()

	assert.True(t, res.held)
	assert.Equal(t, []string{"acquire:1m0s", "release", "acquire:1m0s"}, res.calls)
}

func TestReleaseOnlyWhenHeld(t *testing.T) {
	res := &fakeResource{}
	e := NewExtender(res, time.Minute, nopObs{})

	e.Release()
	assert.Empty(t, res.calls)

	e.Extend()
	e.Release()
	assert.False(t, res.held)
	assert.Equal(t, []string{"acquire:1m0s", "release"}, res.calls)
}

func TestAcquireFailureIsAbsorbed(t *testing.T) {
	res := &fakeResource{acquireErr: errors.New("denied")}
	obs := &errObs{}
	e := NewExtender(res, time.Minute, obs)

	assert.NotPanics(t, e.Extend)
	assert.False(t, res.held)
	assert.Equal(t, []string{"liveness_acquire_failed"}, obs.msgs)
}

type fakeResource struct {
	held       bool
	calls      []string
	acquireErr error
}

func (f *fakeResource) Acquire(d time.Duration) error {
	f.calls = append(f.calls, "acquire:"+d.String())
	if f.acquireErr != nil {
		return f.acquireErr
	}
	f.held = true
	return nil
}

func (f *fakeResource) Release() error {
	f.calls = append(f.calls, "release")
	f.held = false
	return nil
}

func (f *fakeResource) IsHeld() bool { return f.held }

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)         {}
func (nopObs) LogWarn(string, ...ports.Field)         {}
func (nopObs) LogError(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)             {}
func (nopObs) ObserveLatency(string, float64)         {}
func (nopObs) SetGauge(string, float64)               {}

type errObs struct {
	nopObs
	msgs []string
}

func (e *errObs) LogError(msg string, _ error, _ ...ports.Field) { e.msgs = append(e.msgs, msg) }
