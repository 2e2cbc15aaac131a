package trackgate

import (
	"github.com/ghalamif/TrackGate/internal/adapters/provider"
	"github.com/ghalamif/TrackGate/internal/domain"
	"github.com/ghalamif/TrackGate/internal/ports"
)

// Sample is one location reading delivered by a provider.
type Sample = domain.Sample

// AgentConfig is fixed for the lifetime of one tracking run.
type AgentConfig = domain.AgentConfig

// Readout is what observers receive after every processed sample.
type Readout = domain.Readout

// AgentStatus is the snapshot served by the status API.
type AgentStatus = domain.AgentStatus

// UploadStats counts completed upload attempts.
type UploadStats = domain.UploadStats

// CadenceInfo describes the gap between two samples.
type CadenceInfo = domain.CadenceInfo

// SubscriptionRequest is the cadence asked of a provider.
type SubscriptionRequest = domain.SubscriptionRequest

// LocationProvider streams samples from GPS hardware, gateways or simulators.
type LocationProvider = ports.LocationProvider

// SettingsStore serves upload windows and the bypass flag.
type SettingsStore = ports.SettingsStore

// Uploader ships one sample to the collector.
type Uploader = ports.Uploader

// LivenessResource keeps the host awake while held.
type LivenessResource = ports.LivenessResource

// ObserverSink receives a readout after every processed sample.
type ObserverSink = ports.ObserverSink

// HistoryWriter archives batches of readouts.
type HistoryWriter = ports.HistoryWriter

// Observability emits metrics and structured logs.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Feed is a provider that callers push samples into.
type Feed = provider.Feed

// NewFeed returns an unsubscribed Feed for use with WithProvider.
func NewFeed() *Feed { return provider.NewFeed() }

var (
	ErrInvalidConfig       = domain.ErrInvalidConfig
	ErrMalformedWindow     = domain.ErrMalformedWindow
	ErrProviderUnavailable = domain.ErrProviderUnavailable
	ErrAlreadyTracking     = domain.ErrAlreadyTracking
	ErrFeedClosed          = provider.ErrFeedClosed
	ErrFeedFull            = provider.ErrFeedFull
)

// Settings keys read on every sample.
const (
	SettingMorningStart = ports.SettingMorningStart
	SettingMorningEnd   = ports.SettingMorningEnd
	SettingEveningStart = ports.SettingEveningStart
	SettingEveningEnd   = ports.SettingEveningEnd
	SettingBypassGate   = ports.SettingBypassGate
)
