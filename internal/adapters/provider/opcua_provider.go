package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ghalamif/TrackGate/internal/domain"
	"github.com/ghalamif/TrackGate/internal/ports"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"
)

// OPCUAConfig describes a GNSS receiver exposed as OPC UA variables, as found on
// vehicle gateways and AGV controllers.
type OPCUAConfig struct {
	Endpoint        string    `yaml:"endpoint"`
	Username        string    `yaml:"username"`
	Password        string    `yaml:"password"`
	SecurityMode    string    `yaml:"security_mode"`
	SecurityPolicy  string    `yaml:"security_policy"`
	ApplicationName string    `yaml:"application_name"`
	Nodes           GNSSNodes `yaml:"nodes"`
}

// GNSSNodes maps each sample field to a node id. Latitude and Longitude are required.
type GNSSNodes struct {
	Latitude  string `yaml:"latitude"`
	Longitude string `yaml:"longitude"`
	Accuracy  string `yaml:"accuracy"`
	Altitude  string `yaml:"altitude"`
	Speed     string `yaml:"speed"`
	Bearing   string `yaml:"bearing"`
}

func (c *OPCUAConfig) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "TrackGate Agent"
	}
}

func (c *OPCUAConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if c.Nodes.Latitude == "" || c.Nodes.Longitude == "" {
		return errors.New("nodes.latitude and nodes.longitude are required")
	}
	return nil
}

type field int

const (
	fieldLatitude field = iota + 1
	fieldLongitude
	fieldAccuracy
	fieldAltitude
	fieldSpeed
	fieldBearing
)

type monitoredNode struct {
	field  field
	nodeID string
}

func (n GNSSNodes) monitored() []monitoredNode {
	all := []monitoredNode{
		{fieldLatitude, n.Latitude},
		{fieldLongitude, n.Longitude},
		{fieldAccuracy, n.Accuracy},
		{fieldAltitude, n.Altitude},
		{fieldSpeed, n.Speed},
		{fieldBearing, n.Bearing},
	}
	out := all[:0]
	for _, m := range all {
		if m.nodeID != "" {
			out = append(out, m)
		}
	}
	return out
}

// OPCUAProvider subscribes to the GNSS nodes and emits one sample per publish
// cycle that carries a position change.
type OPCUAProvider struct {
	cfg OPCUAConfig
	log *zap.Logger

	mu      sync.Mutex
	client  *opcua.Client
	sub     *opcua.Subscription
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func NewOPCUAProvider(cfg OPCUAConfig, logger *zap.Logger) (*OPCUAProvider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OPCUAProvider{cfg: cfg, log: logger}, nil
}

func (p *OPCUAProvider) Name() string { return "opcua" }

// Subscribe connects to the server and monitors the configured nodes. The publish
// interval follows req.Interval and the sampling interval follows req.MinInterval.
func (p *OPCUAProvider) Subscribe(req domain.SubscriptionRequest, out chan<- domain.Sample) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return fmt.Errorf("opcua provider already subscribed")
	}
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	client, err := opcua.NewClient(p.cfg.Endpoint, p.clientOptions()...)
	if err != nil {
		cancel()
		return fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		cancel()
		return fmt.Errorf("opcua connect: %w", err)
	}

	nodes := p.cfg.Nodes.monitored()
	notifyCh := make(chan *opcua.PublishNotificationData, len(nodes)*4)
	sub, err := client.Subscribe(ctx, &opcua.SubscriptionParameters{
		Interval: req.Interval,
	}, notifyCh)
	if err != nil {
		cancel()
		_ = client.Close(ctx)
		return fmt.Errorf("opcua subscribe: %w", err)
	}

	asm := newFixAssembler()
	for i, node := range nodes {
		nodeID, err := ua.ParseNodeID(node.nodeID)
		if err != nil {
			p.cleanupOnError(cancel, sub, client)
			return fmt.Errorf("parse node id %q: %w", node.nodeID, err)
		}
		handle := uint32(i + 1)
		mreq := opcua.NewMonitoredItemCreateRequestWithDefaults(nodeID, ua.AttributeIDValue, handle)
		if req.MinInterval > 0 {
			mreq.RequestedParameters.SamplingInterval = float64(req.MinInterval / time.Millisecond)
		}
		res, err := sub.Monitor(ctx, ua.TimestampsToReturnBoth, mreq)
		if err != nil {
			p.cleanupOnError(cancel, sub, client)
			return fmt.Errorf("monitor node %q: %w", node.nodeID, err)
		}
		if len(res.Results) == 0 {
			p.cleanupOnError(cancel, sub, client)
			return fmt.Errorf("monitor node %q failed: empty result", node.nodeID)
		}
		if res.Results[0].StatusCode != ua.StatusOK {
			p.cleanupOnError(cancel, sub, client)
			return fmt.Errorf("monitor node %q failed: %s", node.nodeID, res.Results[0].StatusCode)
		}
		asm.handles[handle] = node.field
	}

	p.mu.Lock()
	p.client = client
	p.sub = sub
	p.cancel = cancel
	p.started = true
	p.mu.Unlock()

	p.log.Info("[GNSSProvider] subscribed",
		zap.String("endpoint", p.cfg.Endpoint),
		zap.Int("nodes", len(nodes)),
		zap.Duration("publish_interval", req.Interval),
	)

	p.wg.Add(1)
	go p.consume(ctx, asm, notifyCh, out)
	return nil
}

func (p *OPCUAProvider) Unsubscribe() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	sub := p.sub
	client := p.client
	p.started = false
	p.cancel = nil
	p.sub = nil
	p.client = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()

	var err error
	if sub != nil {
		if e := sub.Cancel(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}
	if client != nil {
		if e := client.Close(ctx); e != nil && !errors.Is(e, context.Canceled) {
			err = errors.Join(err, e)
		}
	}

	p.wg.Wait()
	return err
}

func (p *OPCUAProvider) consume(ctx context.Context, asm *fixAssembler, ch <-chan *opcua.PublishNotificationData, out chan<- domain.Sample) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case notif := <-ch:
			if notif == nil {
				continue
			}
			if notif.Error != nil {
				p.log.Warn("[GNSSProvider] notification error", zap.Error(notif.Error))
				continue
			}
			data, ok := notif.Value.(*ua.DataChangeNotification)
			if !ok {
				continue
			}
			s, ok := asm.apply(data, time.Now())
			if !ok {
				continue
			}
			deliver(ctx, out, s, p.log)
		}
	}
}

func (p *OPCUAProvider) clientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(p.cfg.SecurityMode)),
		opcua.SecurityPolicy(p.cfg.SecurityPolicy),
		opcua.ApplicationName(p.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}
	if p.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(p.cfg.Username, p.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func (p *OPCUAProvider) cleanupOnError(cancel context.CancelFunc, sub *opcua.Subscription, client *opcua.Client) {
	cancel()
	ctx, ctxCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer ctxCancel()
	if sub != nil {
		_ = sub.Cancel(ctx)
	}
	if client != nil {
		_ = client.Close(ctx)
	}
}

// fixAssembler keeps the latest value of every node and builds a sample from them.
type fixAssembler struct {
	handles map[uint32]field
	current domain.Sample
	hasLat  bool
	hasLng  bool
}

func newFixAssembler() *fixAssembler {
	return &fixAssembler{handles: make(map[uint32]field)}
}

// apply folds one publish cycle into the fix. A sample is produced only when the
// cycle touched latitude or longitude and both have been seen at least once.
func (a *fixAssembler) apply(data *ua.DataChangeNotification, now time.Time) (domain.Sample, bool) {
	moved := false
	var ts time.Time
	for _, item := range data.MonitoredItems {
		f, ok := a.handles[item.ClientHandle]
		if !ok || item.Value == nil {
			continue
		}
		v, ok := variantToFloat(item.Value.Value)
		if !ok {
			continue
		}
		switch f {
		case fieldLatitude:
			a.current.Latitude, a.hasLat, moved = v, true, true
		case fieldLongitude:
			a.current.Longitude, a.hasLng, moved = v, true, true
		case fieldAccuracy:
			a.current.Accuracy = v
		case fieldAltitude:
			a.current.Altitude = v
		case fieldSpeed:
			a.current.Speed = v
		case fieldBearing:
			a.current.Bearing = v
		}
		t := item.Value.ServerTimestamp
		if t.IsZero() {
			t = item.Value.SourceTimestamp
		}
		if t.After(ts) {
			ts = t
		}
	}
	if !moved || !a.hasLat || !a.hasLng {
		return domain.Sample{}, false
	}
	if ts.IsZero() {
		ts = now
	}
	s := a.current
	s.ObservedAt = ts
	return s, true
}

func variantToFloat(v *ua.Variant) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.Value().(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int16:
		return float64(val), true
	case uint16:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

var _ ports.LocationProvider = (*OPCUAProvider)(nil)
