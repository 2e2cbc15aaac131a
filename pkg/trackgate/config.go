package trackgate

import (
	"github.com/ghalamif/TrackGate/internal/adapters/provider"
	"github.com/ghalamif/TrackGate/internal/adapters/settings"
	"github.com/ghalamif/TrackGate/internal/adapters/transport"
	"github.com/ghalamif/TrackGate/internal/app/config"
	"github.com/ghalamif/TrackGate/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// RunConfig is the agent section: the tracking run plus auto start and timezone.
	RunConfig = config.AgentConfig
	// UploadConfig selects the payload flavour and HTTP client.
	UploadConfig = config.UploadConfig
	// TransportConfig configures timeouts, HTTP/2 and mTLS for uploads.
	TransportConfig = transport.Config
	// LivenessConfig sets how long one sample keeps the agent awake.
	LivenessConfig = config.LivenessConfig
	// ProviderConfig picks and configures the location provider.
	ProviderConfig = config.ProviderConfig
	// SimulatedConfig drives the random-walk provider.
	SimulatedConfig = provider.SimulatedConfig
	// OPCUAConfig connects to a GNSS receiver exposed over OPC UA.
	OPCUAConfig = provider.OPCUAConfig
	// GNSSNodes maps sample fields to OPC UA node ids.
	GNSSNodes = provider.GNSSNodes
	// SettingsConfig picks the settings backend.
	SettingsConfig = config.SettingsConfig
	// RedisConfig points at shared settings keys.
	RedisConfig = settings.RedisConfig
	// HistoryConfig configures the Postgres readout archive.
	HistoryConfig = config.HistoryConfig
	// Policy bounds the readout history queue.
	Policy = ports.Policy
	// MetricsConfig configures the status and metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// LoggingConfig configures zap.
	LoggingConfig = config.LoggingConfig
	// TracingConfig configures the OTLP exporter.
	TracingConfig = config.TracingConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
