package trackgate

import (
	"sync"
	"sync/atomic"
)

// ReadoutFunc is invoked with every processed readout. It runs on the sampling
// path and must return quickly.
type ReadoutFunc func(Readout)

// NewCallbackObserver adapts a ReadoutFunc into an ObserverSink so callers can
// plug arbitrary functions without defining structs.
func NewCallbackObserver(fn ReadoutFunc) ObserverSink {
	return callbackObserver(fn)
}

type callbackObserver ReadoutFunc

func (f callbackObserver) OnSampleProcessed(r Readout) {
	if f != nil {
		f(r)
	}
}

// ChannelObserver exposes readouts on a channel. Readouts that find the buffer
// full are dropped and counted rather than blocking the sampling path.
type ChannelObserver struct {
	ch      chan Readout
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewChannelObserver returns the observer and its read-only channel. Call Close
// during shutdown, after the agent has stopped tracking.
func NewChannelObserver(buffer int) (*ChannelObserver, <-chan Readout) {
	if buffer < 1 {
		buffer = 1
	}
	c := &ChannelObserver{ch: make(chan Readout, buffer)}
	return c, c.ch
}

func (c *ChannelObserver) OnSampleProcessed(r Readout) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- r:
	default:
		c.dropped.Add(1)
	}
}

// Dropped is the number of readouts discarded because the buffer was full.
func (c *ChannelObserver) Dropped() uint64 { return c.dropped.Load() }

// Close closes the channel. Later readouts are ignored.
func (c *ChannelObserver) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

var (
	_ ObserverSink = callbackObserver(nil)
	_ ObserverSink = (*ChannelObserver)(nil)
)
