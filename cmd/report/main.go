package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"copytrader-lab/internal/app"
	"copytrader-lab/internal/reporting"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	outputDir := flag.String("output-dir", "", "Output directory for generated files (defaults to output.dir)")
	flag.Parse()

	ctx := context.Background()

	a, err := app.Setup(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	dir := *outputDir
	if dir == "" {
		dir = a.Config.Output.Dir
	}

	report, err := reporting.NewGenerator(a.Datasets, a.Models).
		Generate(ctx, a.Config.Pipeline.Instruments, a.Config.Data.Timeframe)
	if err != nil {
		a.Close()
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	paths, err := reporting.WriteReport(dir, report)
	if err != nil {
		a.Close()
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Dataset report generated successfully:")
	for _, p := range paths {
		fmt.Printf("  - %s\n", p)
	}
	if len(report.MissingDatasets) > 0 {
		fmt.Printf("Missing datasets: %v\n", report.MissingDatasets)
	}
	if len(report.MissingModels) > 0 {
		fmt.Printf("Missing models: %v\n", report.MissingModels)
	}
}
