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

func main() {
	flow, err := trackgate.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(r trackgate.Readout) {
		fmt.Printf("%s run=%s seq=%d lat=%.5f lng=%.5f forwarded=%t ok=%d failed=%d\n",
			r.ProcessedAt.Format(time.RFC3339),
			r.RunID,
			r.Seq,
			r.Sample.Latitude,
			r.Sample.Longitude,
			r.Forwarded,
			r.Stats.SuccessCount,
			r.Stats.FailureCount,
		)
	}

	if err := flow.Run(ctx, trackgate.StreamOutCallback(callback)); err != nil && err != context.Canceled {
		log.Fatalf("agent error: %v", err)
	}
}
