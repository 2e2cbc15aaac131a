package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/TrackGate"
)

// Pushes fixes the host obtains itself and reads processed readouts from a channel.
func main() {
	flow, err := trackgate.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed := trackgate.NewFeed()
	observer, readouts := trackgate.NewChannelObserver(32)
	go printReadouts(readouts)

	agent, err := flow.StreamIN(trackgate.StreamInProvider(feed)).StreamOUT(trackgate.StreamOutObserver(observer))
	if err != nil {
		log.Fatalf("build agent: %v", err)
	}

	go pushFixes(ctx, feed, flow.Config().Agent.IntervalSeconds)

	if err := agent.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("agent error: %v", err)
	}
	observer.Close()
}

func pushFixes(ctx context.Context, feed *trackgate.Feed, intervalSeconds int) {
	if intervalSeconds <= 0 {
		intervalSeconds = 30
	}
	ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
	defer ticker.Stop()

	lat, lng := 25.0330, 121.5654
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			lat += 0.0001
			if err := feed.Push(trackgate.Sample{Latitude: lat, Longitude: lng, Accuracy: 8, ObservedAt: now}); err != nil {
				fmt.Printf("push: %v\n", err)
			}
		}
	}
}

func printReadouts(readouts <-chan trackgate.Readout) {
	for r := range readouts {
		fmt.Printf("[readout] seq=%d forwarded=%t anomalous=%t\n", r.Seq, r.Forwarded, r.Cadence.Anomalous)
	}
}
