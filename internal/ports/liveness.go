package ports

import "time"

// LivenessResource keeps the host from suspending the agent while held.
type LivenessResource interface {
	Acquire(d time.Duration) error
	Release() error
	IsHeld() bool
}
