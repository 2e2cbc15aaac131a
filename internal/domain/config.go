package domain

import "net/url"

// DefaultIntervalSeconds is used when AgentConfig.IntervalSeconds is left at zero.
const DefaultIntervalSeconds = 30

// AgentConfig is fixed for the lifetime of one tracking run.
type AgentConfig struct {
	UserID           string `json:"user_id" yaml:"user_id"`
	IntervalSeconds  int    `json:"interval_seconds" yaml:"interval_seconds"`
	EndpointURL      string `json:"endpoint_url" yaml:"endpoint_url"`
	BypassWindowGate bool   `json:"bypass_window_gate" yaml:"bypass_window_gate"`
}

// Normalize fills defaults and checks the fields a run cannot start without.
func (c AgentConfig) Normalize() (AgentConfig, error) {
	if c.UserID == "" {
		return c, &InvalidConfigError{Field: "user_id", Reason: "must not be empty"}
	}
	if c.EndpointURL == "" {
		return c, &InvalidConfigError{Field: "endpoint_url", Reason: "must not be empty"}
	}
	if u, err := url.Parse(c.EndpointURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return c, &InvalidConfigError{Field: "endpoint_url", Reason: "must be an absolute http or https URL"}
	}
	if c.IntervalSeconds == 0 {
		c.IntervalSeconds = DefaultIntervalSeconds
	}
	if c.IntervalSeconds < 1 {
		return c, &InvalidConfigError{Field: "interval_seconds", Reason: "must be >= 1"}
	}
	return c, nil
}
