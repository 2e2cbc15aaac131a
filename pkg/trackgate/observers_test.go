package trackgate

import (
	"testing"
)

func TestCallbackObserver(t *testing.T) {
	var got []uint64
	obs := NewCallbackObserver(func(r Readout) { got = append(got, r.Seq) })

	obs.OnSampleProcessed(Readout{Seq: 1})
	obs.OnSampleProcessed(Readout{Seq: 2})

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected callback calls %v", got)
	}

	NewCallbackObserver(nil).OnSampleProcessed(Readout{Seq: 3})
}

func TestChannelObserverDropsWhenFull(t *testing.T) {
	obs, ch := NewChannelObserver(1)

	obs.OnSampleProcessed(Readout{Seq: 1})
	obs.OnSampleProcessed(Readout{Seq: 2})

	if got := (<-ch).Seq; got != 1 {
		t.Fatalf("expected first readout, got seq %d", got)
	}
	if obs.Dropped() != 1 {
		t.Fatalf("expected 1 dropped readout, got %d", obs.Dropped())
	}

	obs.Close()
	obs.Close()
	obs.OnSampleProcessed(Readout{Seq: 3})
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
}
