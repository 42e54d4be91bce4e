// Package main provides the train entry point.
// Trains and evaluates a model per prepared dataset and updates model-performance.json.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"copytrader-lab/internal/app"
	"copytrader-lab/internal/orchestrator"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	flag.Parse()

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
		cancel()
	}()

	a, err := app.Setup(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()
	a.ServeMetrics(ctx)

	res, err := a.Orchestrator().Train(ctx)
	if res != nil {
		app.PrintSummary(os.Stdout, res)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if res.Count(orchestrator.StatusFailed) > 0 {
		return 1
	}
	return 0
}
