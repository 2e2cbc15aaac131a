package trackgate

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	base "github.com/ghalamif/TrackGate/pkg/trackgate"
)

// Re-exported errors for convenience.
var (
	ErrInvalidConfig       = base.ErrInvalidConfig
	ErrMalformedWindow     = base.ErrMalformedWindow
	ErrProviderUnavailable = base.ErrProviderUnavailable
	ErrAlreadyTracking     = base.ErrAlreadyTracking
	ErrFeedClosed          = base.ErrFeedClosed
	ErrFeedFull            = base.ErrFeedFull
)

// Type aliases so consumers can import github.com/ghalamif/TrackGate directly.
type (
	Config           = base.Config
	RunConfig        = base.RunConfig
	UploadConfig     = base.UploadConfig
	TransportConfig  = base.TransportConfig
	ProviderConfig   = base.ProviderConfig
	SimulatedConfig  = base.SimulatedConfig
	OPCUAConfig      = base.OPCUAConfig
	GNSSNodes        = base.GNSSNodes
	SettingsConfig   = base.SettingsConfig
	RedisConfig      = base.RedisConfig
	HistoryConfig    = base.HistoryConfig
	Policy           = base.Policy
	MetricsConfig    = base.MetricsConfig
	Flow             = base.Flow
	FlowOption       = base.FlowOption
	StreamInOption   = base.StreamInOption
	StreamOutOption  = base.StreamOutOption
	Agent            = base.Agent
	AgentOption      = base.AgentOption
	AgentConfig      = base.AgentConfig
	AgentStatus      = base.AgentStatus
	Sample           = base.Sample
	Readout          = base.Readout
	ReadoutFunc      = base.ReadoutFunc
	UploadStats      = base.UploadStats
	LocationProvider = base.LocationProvider
	SettingsStore    = base.SettingsStore
	Uploader         = base.Uploader
	LivenessResource = base.LivenessResource
	ObserverSink     = base.ObserverSink
	HistoryWriter    = base.HistoryWriter
	Observability    = base.Observability
	Field            = base.Field
	Feed             = base.Feed
	ChannelObserver  = base.ChannelObserver
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...AgentOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInProvider(p LocationProvider) StreamInOption {
	return base.StreamInProvider(p)
}

func StreamInSettings(s SettingsStore) StreamInOption {
	return base.StreamInSettings(s)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutUploader(u Uploader) StreamOutOption {
	return base.StreamOutUploader(u)
}

func StreamOutHistory(w HistoryWriter) StreamOutOption {
	return base.StreamOutHistory(w)
}

func StreamOutObserver(obs ObserverSink) StreamOutOption {
	return base.StreamOutObserver(obs)
}

func StreamOutCallback(fn ReadoutFunc) StreamOutOption {
	return base.StreamOutCallback(fn)
}

// Agent and options.
func NewAgent(cfg *Config, opts ...AgentOption) (*Agent, error) {
	return base.NewAgent(cfg, opts...)
}

func WithProvider(p LocationProvider) AgentOption {
	return base.WithProvider(p)
}

func WithSettings(s SettingsStore) AgentOption {
	return base.WithSettings(s)
}

func WithUploader(u Uploader) AgentOption {
	return base.WithUploader(u)
}

func WithLiveness(r LivenessResource) AgentOption {
	return base.WithLiveness(r)
}

func WithObservability(obs Observability) AgentOption {
	return base.WithObservability(obs)
}

func WithHistoryWriter(w HistoryWriter) AgentOption {
	return base.WithHistoryWriter(w)
}

func WithObserver(obs ObserverSink) AgentOption {
	return base.WithObserver(obs)
}

func WithLogger(l *zap.Logger) AgentOption {
	return base.WithLogger(l)
}

func WithRegistry(reg *prometheus.Registry) AgentOption {
	return base.WithRegistry(reg)
}

func WithoutStatusServer() AgentOption {
	return base.WithoutStatusServer()
}

// Providers and observers.
func NewFeed() *Feed {
	return base.NewFeed()
}

func NewCallbackObserver(fn ReadoutFunc) ObserverSink {
	return base.NewCallbackObserver(fn)
}

func NewChannelObserver(buffer int) (*ChannelObserver, <-chan Readout) {
	return base.NewChannelObserver(buffer)
}
