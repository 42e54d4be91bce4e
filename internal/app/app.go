// Package app wires configuration, logging, metrics and storage backends
// into an orchestrator for the command-line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"copytrader-lab/internal/config"
	"copytrader-lab/internal/loader"
	"copytrader-lab/internal/logger"
	"copytrader-lab/internal/observability"
	"copytrader-lab/internal/orchestrator"
	"copytrader-lab/internal/storage"
	chstore "copytrader-lab/internal/storage/clickhouse"
	"copytrader-lab/internal/storage/file"
	"copytrader-lab/internal/storage/memory"
	"copytrader-lab/internal/storage/migrations"
	pgstore "copytrader-lab/internal/storage/postgres"
)

// App holds the wired dependencies of one tool invocation.
type App struct {
	Config  *config.Config
	Log     zerolog.Logger
	Metrics *observability.Metrics

	Candles     loader.CandleSource
	Trades      loader.TradeSource
	Datasets    storage.DatasetStore
	Models      storage.ModelStore
	Predictions storage.PredictionStore // nil for the file backend

	closers []func()
}

// Setup loads the config at path and connects the configured backends.
// Database migrations run unless storage.skip_migrate is set.
func Setup(ctx context.Context, path string) (*App, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log, logCloser, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Log:     log,
		Metrics: metricsFor(cfg.Metrics.Namespace),
	}
	a.closers = append(a.closers, func() { logCloser.Close() })

	if err := a.openArtifactStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openCandleSource(ctx); err != nil {
		a.Close()
		return nil, err
	}

	loc, err := cfg.DataLocation()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Trades = loader.TradeHistory{
		Path:     a.TradeHistoryPath(),
		Layout:   cfg.Data.TimeLayout,
		Location: loc,
	}

	return a, nil
}

// metricsFor reuses DefaultMetrics for the default namespace; a custom
// namespace registers a second metric set.
func metricsFor(namespace string) *observability.Metrics {
	if namespace == "" || namespace == observability.DefaultNamespace {
		return observability.DefaultMetrics
	}
	return observability.NewMetrics(namespace)
}

func (a *App) openArtifactStores(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		a.Datasets = memory.NewDatasetStore()
		a.Models = memory.NewModelStore()
		a.Predictions = memory.NewPredictionStore()

	case config.BackendFile:
		a.Datasets = file.NewDatasetStore(cfg.Output.Dir)
		a.Models = file.NewModelStore(cfg.Output.ModelsDir)

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		if !cfg.Storage.SkipMigrate {
			applied, err := migrations.RunPostgresMigrations(ctx, pool)
			if err != nil {
				return fmt.Errorf("postgres migrations: %w", err)
			}
			a.Log.Info().Strs("applied", applied).Msg("postgres migrations done")
		}

		a.Datasets = pgstore.NewDatasetStore(pool)
		a.Models = pgstore.NewModelStore(pool)
		a.Predictions = pgstore.NewPredictionStore(pool)

	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	return nil
}

func (a *App) openCandleSource(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Storage.CandleSource {
	case config.CandleSourceFile:
		a.Candles = loader.FileCandles{Dir: cfg.Data.Dir}
		return nil

	case config.CandleSourceClickhouse:
		store, err := a.OpenClickhouseCandles(ctx)
		if err != nil {
			return err
		}
		a.Candles = loader.StoreCandles{Store: store}
		return nil

	default:
		return fmt.Errorf("unknown candle source %q", cfg.Storage.CandleSource)
	}
}

// OpenClickhouseCandles connects the ClickHouse candle store, migrating the
// schema first unless storage.skip_migrate is set.
func (a *App) OpenClickhouseCandles(ctx context.Context) (*chstore.CandleStore, error) {
	cfg := a.Config
	if cfg.Storage.ClickhouseDSN == "" {
		return nil, errors.New("storage.clickhouse_dsn is required")
	}

	var (
		conn *chstore.Conn
		err  error
	)
	if cfg.Storage.SkipMigrate {
		conn, err = chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	} else {
		conn, err = migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	a.closers = append(a.closers, func() { conn.Close() })

	return chstore.NewCandleStore(conn), nil
}

// TradeHistoryPath resolves data.trade_history against data.dir.
func (a *App) TradeHistoryPath() string {
	p := a.Config.Data.TradeHistory
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.Config.Data.Dir, p)
}

// Orchestrator builds the stage orchestrator over the wired backends.
func (a *App) Orchestrator() *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Options{
		Config:      a.Config,
		Candles:     a.Candles,
		Trades:      a.Trades,
		Datasets:    a.Datasets,
		Models:      a.Models,
		Predictions: a.Predictions,
		Logger:      a.Log,
		Metrics:     a.Metrics,
	})
}

// ServeMetrics starts the /metrics and /health endpoint when metrics.addr is
// set. The server stops when ctx is done.
func (a *App) ServeMetrics(ctx context.Context) {
	addr := a.Config.Metrics.Addr
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.Log.Info().Str("addr", addr).Msg("starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Error().Err(err).Msg("metrics server error")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
