package trackgate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type stubUploader struct{}

func (stubUploader) Upload(context.Context, AgentConfig, Sample) error { return nil }
func (stubUploader) Name() string                                      { return "stub" }

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := testConfig("http://collector.invalid/track")
	cfg.Agent.AutoStart = false

	flow, err := ConfFromConfig(cfg, WithFlowOptions(WithLogger(zaptest.NewLogger(t)), WithoutStatusServer()))
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	feed := NewFeed()
	up := stubUploader{}
	agent, err := flow.
		StreamIN(StreamInProvider(feed)).
		StreamOUT(StreamOutUploader(up))
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	got, ok := agent.Feed()
	if !ok || got != feed {
		t.Fatalf("expected custom provider to be wired")
	}
}

func TestFlowRunDeliversCallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Agent.BypassWindowGate = true
	feed := NewFeed()
	readouts := make(chan Readout, 4)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	flow.Options(WithLogger(zaptest.NewLogger(t)), WithoutStatusServer())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- flow.StreamIN(StreamInProvider(feed)).Run(ctx,
			StreamOutCallback(func(r Readout) { readouts <- r }))
	}()

	deadline := time.Now().Add(2 * time.Second)
	for feed.Push(Sample{Latitude: 1, Longitude: 2, ObservedAt: time.Now()}) != nil {
		if time.Now().After(deadline) {
			t.Fatalf("agent never subscribed to the feed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case r := <-readouts:
		if !r.Forwarded || r.Seq != 1 {
			t.Fatalf("unexpected readout %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("callback was not invoked")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
}
