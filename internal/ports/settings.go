package ports

import "context"

// Keys read from the settings store on every sample.
const (
	SettingMorningStart = "commute_start_morning"
	SettingMorningEnd   = "commute_end_morning"
	SettingEveningStart = "commute_start_evening"
	SettingEveningEnd   = "commute_end_evening"
	SettingBypassGate   = "skip_commute_time_check"
)

// SettingsStore is a persistent key-value store owned by the host.
// A missing key is reported with ok=false and a nil error.
type SettingsStore interface {
	GetString(ctx context.Context, key string) (value string, ok bool, err error)
	GetBool(ctx context.Context, key string) (bool, error)
}
