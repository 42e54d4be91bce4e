// Package main copies <coin>-ohlc-<timeframe>.json files into the ClickHouse
// candle store so prepare and predict can read candles with
// storage.candle_source: clickhouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"copytrader-lab/internal/app"
	"copytrader-lab/internal/loader"
	"copytrader-lab/internal/storage"
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
		<-sigCh
		cancel()
	}()

	a, err := app.Setup(ctx, configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	// Reuse the candle store when the config already reads from ClickHouse.
	var store storage.CandleStore
	if sc, ok := a.Candles.(loader.StoreCandles); ok {
		store = sc.Store
	} else if store, err = a.OpenClickhouseCandles(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cfg := a.Config
	missing, err := loader.Import(ctx, loader.FileCandles{Dir: cfg.Data.Dir}, store, cfg.Data.Timeframe, cfg.Pipeline.Instruments)
	for _, instrument := range missing {
		a.Log.Warn().Str("instrument", instrument).Msg("no candle file, skipped")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Printf("Imported %d of %d instruments (%s)\n",
		len(cfg.Pipeline.Instruments)-len(missing), len(cfg.Pipeline.Instruments), cfg.Data.Timeframe)
	return 0
}
