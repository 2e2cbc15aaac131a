package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks a start call rejected for missing or bad parameters.
	ErrInvalidConfig = errors.New("trackgate: invalid config")
	// ErrMalformedWindow marks a time window string that is not "HH:MM".
	ErrMalformedWindow = errors.New("trackgate: malformed window")
	// ErrProviderUnavailable marks a location provider that refused the subscription.
	ErrProviderUnavailable = errors.New("trackgate: provider unavailable")
	// ErrAlreadyTracking is returned by Start while a run is active.
	ErrAlreadyTracking = errors.New("trackgate: already tracking")
)

type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func (e *InvalidConfigError) Is(target error) bool { return target == ErrInvalidConfig }

type MalformedWindowError struct {
	Window string
	Value  string
	Reason string
}

func (e *MalformedWindowError) Error() string {
	return fmt.Sprintf("malformed window %s %q: %s", e.Window, e.Value, e.Reason)
}

func (e *MalformedWindowError) Is(target error) bool { return target == ErrMalformedWindow }

type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Is(target error) bool { return target == ErrProviderUnavailable }

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// UploadError describes a failed upload attempt. StatusCode is zero for transport errors.
type UploadError struct {
	StatusCode int
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload rejected: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
