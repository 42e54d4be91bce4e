package storage

import (
	"context"

	"copytrader-lab/internal/domain"
)

// CandleStore provides access to candles storage.
type CandleStore interface {
	// InsertBulk adds candles of one series. Fails entire batch on duplicate
	// (instrument, timeframe, timestamp_ms).
	InsertBulk(ctx context.Context, instrument, timeframe string, candles []domain.Candle) error

	// GetSeries retrieves the full series, ordered by timestamp ASC.
	// Returns ErrNotFound if the series has no candles.
	GetSeries(ctx context.Context, instrument, timeframe string) ([]domain.Candle, error)

	// GetByTimeRange retrieves candles within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, instrument, timeframe string, start, end int64) ([]domain.Candle, error)
}

// DatasetStore provides access to prepared datasets, one per (instrument, timeframe).
type DatasetStore interface {
	// Save stores a dataset, replacing any previous dataset of the same
	// instrument and timeframe.
	Save(ctx context.Context, ds *domain.Dataset) error

	// Get retrieves the dataset of an instrument. Returns ErrNotFound if not exists.
	Get(ctx context.Context, instrument, timeframe string) (*domain.Dataset, error)
}

// ModelStore provides access to trained model artifacts, one per instrument.
type ModelStore interface {
	// Save stores a model, replacing any previous model of the instrument.
	Save(ctx context.Context, m *domain.ModelArtifact) error

	// Get retrieves the model of an instrument. Returns ErrNotFound if not exists.
	Get(ctx context.Context, instrument string) (*domain.ModelArtifact, error)
}

// PredictionStore provides access to predicted_trades storage.
type PredictionStore interface {
	// InsertBulk adds the predictions of one run and instrument atomically.
	// Returns ErrDuplicateKey if (run_id, instrument, window_index) exists.
	InsertBulk(ctx context.Context, runID, instrument string, trades []domain.PredictedTrade) error

	// GetByRun retrieves the predictions of a run and instrument, ordered by window index.
	GetByRun(ctx context.Context, runID, instrument string) ([]domain.PredictedTrade, error)
}
