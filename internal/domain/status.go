package domain

import "time"

// Tracking states reported in AgentStatus.State.
const (
	StateIdle     = "idle"
	StateTracking = "tracking"
	StateStopped  = "stopped"
)

// AgentStatus is a snapshot of the controller for operators.
type AgentStatus struct {
	RunID           string      `json:"run_id,omitempty"`
	State           string      `json:"state"`
	Config          AgentConfig `json:"config"`
	Samples         uint64      `json:"samples"`
	LatestSample    *Sample     `json:"latest_sample,omitempty"`
	LastCadence     CadenceInfo `json:"last_cadence"`
	Stats           UploadStats `json:"stats"`
	UploadsInFlight int64       `json:"uploads_in_flight"`
	StartedAt       time.Time   `json:"started_at,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}
