package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/TrackGate"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "status":
		err = statusCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("trackgate %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to agent configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := trackgate.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := trackgate.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	fmt.Printf("config %s looks good: provider=%s settings=%s interval=%ds\n",
		*cfgPath, cfg.Provider.Kind, cfg.Settings.Backend, cfg.Agent.IntervalSeconds)
	return nil
}

func statusCommand(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/api/v1/tracking/status", "Status API endpoint")
	interval := fs.Duration("interval", 0, "Refresh interval; 0 prints once")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client := &http.Client{Timeout: 5 * time.Second}
	if *interval <= 0 {
		return printStatus(client, *url)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Polling %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printStatus(client, *url); err != nil {
				fmt.Fprintf(os.Stderr, "status error: %v\n", err)
			}
		}
	}
}

func printStatus(client *http.Client, url string) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var st trackgate.AgentStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return err
	}

	latest := "-"
	if st.LatestSample != nil {
		latest = fmt.Sprintf("%.5f,%.5f", st.LatestSample.Latitude, st.LatestSample.Longitude)
	}
	fmt.Printf("[%s] state=%s run=%s samples=%d uploads ok=%d failed=%d in_flight=%d latest=%s\n",
		st.Timestamp.Format(time.RFC3339),
		st.State,
		st.RunID,
		st.Samples,
		st.Stats.SuccessCount,
		st.Stats.FailureCount,
		st.UploadsInFlight,
		latest,
	)
	return nil
}

func printUsage() {
	fmt.Printf(`TrackGate CLI

Usage:
  trackgate <command> [flags]

Commands:
  run        Start the agent using the provided config
  validate   Load and validate a config file without starting the agent
  status     Query the status API and print the current run

Examples:
  trackgate run -config ./data/config.yaml
  trackgate validate -config ./data/config.yaml
  trackgate status -url http://localhost:9100/api/v1/tracking/status -interval 5s
`)
}
