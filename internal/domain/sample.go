package domain

import "time"

// Sample is one location reading delivered by the provider.
type Sample struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"`
	Altitude   float64   `json:"altitude"`
	Speed      float64   `json:"speed"`
	Bearing    float64   `json:"bearing"`
	ObservedAt time.Time `json:"observed_at"`
}

// CadenceState is the per-run memory of the cadence monitor.
type CadenceState struct {
	LastObservedAt            time.Time
	PreviousObservedAt        time.Time
	ConfiguredIntervalSeconds int
}

// CadenceInfo is what the monitor reports for a single observation.
// HasInterval is false on the first observation of a run.
type CadenceInfo struct {
	ActualIntervalSeconds   float64 `json:"actual_interval_seconds"`
	HasInterval             bool    `json:"has_interval"`
	ExpectedIntervalSeconds float64 `json:"expected_interval_seconds"`
	ToleranceSeconds        float64 `json:"tolerance_seconds"`
	Anomalous               bool    `json:"anomalous"`
}

// TimeWindow is a time-of-day interval in minutes since midnight, inclusive on both ends.
// A window with Start > End never matches.
type TimeWindow struct {
	Name             string
	StartMinuteOfDay int
	EndMinuteOfDay   int
}

// Contains reports whether minute falls inside the window.
func (w TimeWindow) Contains(minute int) bool {
	return w.StartMinuteOfDay <= minute && minute <= w.EndMinuteOfDay
}

// UploadStats is a point-in-time copy of the upload counters.
type UploadStats struct {
	SuccessCount uint64 `json:"success_count"`
	FailureCount uint64 `json:"failure_count"`
}

// Total returns the number of completed upload attempts.
func (s UploadStats) Total() uint64 { return s.SuccessCount + s.FailureCount }

// SubscriptionRequest is the cadence asked of a location provider.
type SubscriptionRequest struct {
	Interval    time.Duration
	MinInterval time.Duration
	MaxDelay    time.Duration
}

// Readout is the operator-facing view of one processed sample.
type Readout struct {
	RunID       string      `json:"run_id"`
	Seq         uint64      `json:"seq"`
	Sample      Sample      `json:"sample"`
	Cadence     CadenceInfo `json:"cadence"`
	Stats       UploadStats `json:"stats"`
	Forwarded   bool        `json:"forwarded"`
	ProcessedAt time.Time   `json:"processed_at"`
}
