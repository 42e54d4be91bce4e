// Command pipeline labels, trains and predicts every configured instrument in
// one go: prepare → train → predict.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"copytrader-lab/internal/app"
	"copytrader-lab/internal/orchestrator"
	"copytrader-lab/internal/reporting"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	flag.Parse()

	os.Exit(run(*configPath))
}

func run(configPath string) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	a, err := app.Setup(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()
	a.ServeMetrics(ctx)

	results, err := a.Orchestrator().RunAll(ctx)

	failed := 0
	for _, res := range results {
		app.PrintSummary(os.Stdout, res)
		fmt.Println()
		failed += res.Count(orchestrator.StatusFailed)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline stopped: %v\n", err)
		return 1
	}

	fmt.Println("Outputs:")
	fmt.Printf("  %s\n", filepath.Join(a.Config.Output.Dir, reporting.PerformanceFileName))
	if last := results[len(results)-1]; last.Stage == orchestrator.StagePredict {
		for _, ir := range last.Instruments {
			if ir.OutputPath != "" {
				fmt.Printf("  %s\n", ir.OutputPath)
			}
		}
	}

	if failed > 0 {
		return 1
	}
	return 0
}
