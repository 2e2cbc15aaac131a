// Package cadence tracks how regularly samples arrive compared to the configured interval.
package cadence

import (
	"time"

	"github.com/ghalamif/TrackGate/internal/domain"
)

// ToleranceRatio is the share of the expected interval a gap may overrun before it is anomalous.
const ToleranceRatio = 0.3

// Monitor is not safe for concurrent use; the controller serializes calls.
type Monitor struct {
	state domain.CadenceState
}

func NewMonitor(intervalSeconds int) *Monitor {
	return &Monitor{state: domain.CadenceState{ConfiguredIntervalSeconds: intervalSeconds}}
}

// Observe records now and reports the gap since the previous observation.
// Only late samples are anomalous: early bursts from provider throttling are harmless.
func (m *Monitor) Observe(now time.Time) domain.CadenceInfo {
	expected := float64(m.state.ConfiguredIntervalSeconds)
	info := domain.CadenceInfo{
		ExpectedIntervalSeconds: expected,
		ToleranceSeconds:        expected * ToleranceRatio,
	}

	if m.state.LastObservedAt.IsZero() {
		m.state.LastObservedAt = now
		return info
	}

	info.ActualIntervalSeconds = now.Sub(m.state.LastObservedAt).Seconds()
	info.HasInterval = true
	info.Anomalous = info.ActualIntervalSeconds > expected+info.ToleranceSeconds

	m.state.PreviousObservedAt = m.state.LastObservedAt
	m.state.LastObservedAt = now
	return info
}

// State returns a copy of the monitor's state.
func (m *Monitor) State() domain.CadenceState {
	return m.state
}

// Reset forgets prior observations and adopts a new interval.
func (m *Monitor) Reset(intervalSeconds int) {
	m.state = domain.CadenceState{ConfiguredIntervalSeconds: intervalSeconds}
}
