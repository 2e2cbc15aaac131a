package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/TrackGate/internal/adapters/provider"
	"github.com/ghalamif/TrackGate/internal/adapters/settings"
	"github.com/ghalamif/TrackGate/internal/adapters/transport"
	"github.com/ghalamif/TrackGate/internal/adapters/uploader"
	"github.com/ghalamif/TrackGate/internal/domain"
	"github.com/ghalamif/TrackGate/internal/ports"
)

type Config struct {
	Agent    AgentConfig    `yaml:"agent"`
	Upload   UploadConfig   `yaml:"upload"`
	Liveness LivenessConfig `yaml:"liveness"`
	Provider ProviderConfig `yaml:"provider"`
	Settings SettingsConfig `yaml:"settings"`
	History  HistoryConfig  `yaml:"history"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// AgentConfig is the run configuration plus where the agent lives in time.
type AgentConfig struct {
	domain.AgentConfig `yaml:",inline"`
	// AutoStart begins tracking as soon as the runtime starts.
	AutoStart bool `yaml:"auto_start"`
	// Timezone is an IANA name used to evaluate upload windows. Empty means local time.
	Timezone string `yaml:"timezone"`
}

// Location resolves Timezone.
func (a AgentConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}

type UploadConfig struct {
	PayloadFormat    string `yaml:"payload_format"`
	transport.Config `yaml:",inline"`
}

type LivenessConfig struct {
	Hold time.Duration `yaml:"hold"`
}

type ProviderConfig struct {
	Kind      string                   `yaml:"kind"` // simulated, opcua, feed
	Buffer    int                      `yaml:"buffer"`
	Simulated provider.SimulatedConfig `yaml:"simulated"`
	OPCUA     provider.OPCUAConfig     `yaml:"opcua"`
}

type SettingsConfig struct {
	Backend string               `yaml:"backend"` // static, file, redis
	Static  map[string]string    `yaml:"static"`
	File    string               `yaml:"file"`
	Redis   settings.RedisConfig `yaml:"redis"`
}

type HistoryConfig struct {
	ConnString   string `yaml:"conn_string"`
	Table        string `yaml:"table"`
	CreateTable  bool   `yaml:"create_table"`
	ports.Policy `yaml:",inline"`
	// RecentSize is how many readouts the status API keeps in memory.
	RecentSize int `yaml:"recent_size"`
}

// Enabled reports whether readouts are archived to Postgres.
func (h HistoryConfig) Enabled() bool { return h.ConnString != "" }

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Load reads path, applies environment overrides and defaults, and validates.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	if v, ok := lookup("TRACKGATE_USER_ID"); ok {
		c.Agent.UserID = v
	}
	if v, ok := lookup("TRACKGATE_ENDPOINT_URL"); ok {
		c.Agent.EndpointURL = v
	}
	if v, ok := lookup("TRACKGATE_INTERVAL_SECONDS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRACKGATE_INTERVAL_SECONDS: %w", err)
		}
		c.Agent.IntervalSeconds = n
	}
	if v, ok := lookup("TRACKGATE_BYPASS_WINDOW_GATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRACKGATE_BYPASS_WINDOW_GATE: %w", err)
		}
		c.Agent.BypassWindowGate = b
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Agent.IntervalSeconds == 0 {
		c.Agent.IntervalSeconds = domain.DefaultIntervalSeconds
	}
	if c.Upload.PayloadFormat == "" {
		c.Upload.PayloadFormat = string(uploader.PayloadRich)
	}
	c.Upload.Config.ApplyDefaults()
	if c.Liveness.Hold <= 0 {
		c.Liveness.Hold = 10 * time.Minute
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = "simulated"
	}
	if c.Provider.Buffer <= 0 {
		c.Provider.Buffer = 16
	}
	c.Provider.Simulated.ApplyDefaults()
	if c.Provider.Kind == "opcua" {
		c.Provider.OPCUA.ApplyDefaults()
	}
	if c.Settings.Backend == "" {
		c.Settings.Backend = "static"
	}
	if c.History.Table == "" {
		c.History.Table = "sample_history"
	}
	if c.History.MaxQueueLen == 0 {
		c.History.MaxQueueLen = 1024
	}
	if c.History.MaxBatchSize == 0 {
		c.History.MaxBatchSize = 64
	}
	if c.History.FlushInterval == 0 {
		c.History.FlushInterval = 2 * time.Second
	}
	if c.History.IdleSleep == 0 {
		c.History.IdleSleep = 5 * time.Millisecond
	}
	if c.History.OnQueueFull == "" {
		c.History.OnQueueFull = "drop"
	}
	if c.History.RecentSize == 0 {
		c.History.RecentSize = 50
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "trackgate"
	}
}

func (c *Config) validate() error {
	if c.Agent.AutoStart {
		if _, err := c.Agent.AgentConfig.Normalize(); err != nil {
			return fmt.Errorf("agent config: %w", err)
		}
	}
	if c.Agent.IntervalSeconds < 1 {
		return fmt.Errorf("agent.interval_seconds must be >= 1")
	}
	if _, err := c.Agent.Location(); err != nil {
		return fmt.Errorf("agent.timezone: %w", err)
	}
	if _, err := uploader.ParsePayloadFormat(c.Upload.PayloadFormat); err != nil {
		return fmt.Errorf("upload.payload_format: %w", err)
	}
	if (c.Upload.CertFile == "") != (c.Upload.KeyFile == "") {
		return errors.New("upload.cert_file and upload.key_file must be set together")
	}

	switch c.Provider.Kind {
	case "simulated", "feed":
	case "opcua":
		if err := c.Provider.OPCUA.Validate(); err != nil {
			return fmt.Errorf("provider.opcua config: %w", err)
		}
	default:
		return fmt.Errorf("provider.kind %q is not one of simulated, opcua, feed", c.Provider.Kind)
	}

	switch c.Settings.Backend {
	case "static":
	case "file":
		if c.Settings.File == "" {
			return errors.New("settings.file is required for the file backend")
		}
	case "redis":
		if c.Settings.Redis.Addr == "" {
			return errors.New("settings.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("settings.backend %q is not one of static, file, redis", c.Settings.Backend)
	}

	switch c.History.OnQueueFull {
	case "drop", "block":
	default:
		return fmt.Errorf("history.on_queue_full %q is not one of drop, block", c.History.OnQueueFull)
	}
	if c.History.MaxQueueLen < 1 || c.History.MaxBatchSize < 1 {
		return errors.New("history.max_queue_len and history.max_batch_size must be positive")
	}

	if c.Metrics.Addr == "" {
		return errors.New("metrics.addr is required")
	}
	return nil
}
