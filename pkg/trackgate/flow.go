package trackgate

import (
	"context"
	"fmt"
)

// Flow is a convenience builder: Conf → StreamIN → StreamOUT, without touching
// the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []AgentOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption configures the provider/settings side of the agent.
type StreamInOption func(*Flow)

// StreamOutOption configures the uploader/observer side of the agent.
type StreamOutOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before building an agent.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw AgentOption values to the builder.
func (f *Flow) Options(opts ...AgentOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// StreamIN records provider-side overrides.
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT records upload-side overrides and builds an Agent ready to run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Agent, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewAgent(f.cfg, f.opts...)
}

// Run is a shortcut for StreamOUT + Agent.Run.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	a, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// WithFlowOptions appends AgentOption values during Conf.
func WithFlowOptions(opts ...AgentOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamInProvider injects a custom location provider.
func StreamInProvider(p LocationProvider) StreamInOption {
	return func(f *Flow) {
		if f != nil && p != nil {
			f.appendOptions(WithProvider(p))
		}
	}
}

// StreamInSettings swaps the configured settings backend.
func StreamInSettings(s SettingsStore) StreamInOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithSettings(s))
		}
	}
}

// StreamInObservability overrides the default Prometheus-based observability stack.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutUploader injects a custom uploader.
func StreamOutUploader(u Uploader) StreamOutOption {
	return func(f *Flow) {
		if f != nil && u != nil {
			f.appendOptions(WithUploader(u))
		}
	}
}

// StreamOutHistory archives readouts to w.
func StreamOutHistory(w HistoryWriter) StreamOutOption {
	return func(f *Flow) {
		if f != nil && w != nil {
			f.appendOptions(WithHistoryWriter(w))
		}
	}
}

// StreamOutObserver adds an observer.
func StreamOutObserver(obs ObserverSink) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObserver(obs))
		}
	}
}

// StreamOutCallback installs an observer built from a simple callback function.
func StreamOutCallback(fn ReadoutFunc) StreamOutOption {
	return func(f *Flow) {
		if f != nil && fn != nil {
			f.appendOptions(WithObserver(NewCallbackObserver(fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...AgentOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
