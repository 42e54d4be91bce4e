package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

// DatasetStore implements storage.DatasetStore using PostgreSQL.
// A dataset is one datasets row plus its dataset_windows rows.
type DatasetStore struct {
	pool *Pool
}

// NewDatasetStore creates a new DatasetStore.
func NewDatasetStore(pool *Pool) *DatasetStore {
	return &DatasetStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DatasetStore = (*DatasetStore)(nil)

// Save replaces the dataset of (instrument, timeframe) in one transaction.
func (s *DatasetStore) Save(ctx context.Context, ds *domain.Dataset) error {
	if ds == nil || ds.Instrument == "" || ds.Timeframe == "" || ds.Lookback <= 0 {
		return storage.ErrInvalidInput
	}

	counts, err := json.Marshal(ds.LabelCounts)
	if err != nil {
		return fmt.Errorf("encode label counts: %w", err)
	}
	means, stds := paramsToArrays(ds.Params)
	for i, w := range ds.Windows {
		if len(w.Features) != ds.Lookback {
			return fmt.Errorf("window %d has %d rows, want %d: %w", i, len(w.Features), ds.Lookback, domain.ErrShapeMismatch)
		}
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO datasets (
				instrument, timeframe, dataset_id, lookback,
				param_means, param_stds, label_counts, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (instrument, timeframe) DO UPDATE SET
				dataset_id = EXCLUDED.dataset_id,
				lookback = EXCLUDED.lookback,
				param_means = EXCLUDED.param_means,
				param_stds = EXCLUDED.param_stds,
				label_counts = EXCLUDED.label_counts,
				created_at = EXCLUDED.created_at
		`,
			ds.Instrument, ds.Timeframe, ds.DatasetID, ds.Lookback,
			means, stds, string(counts), ds.CreatedAt,
		)
		if err != nil {
			return mapError("upsert dataset", err)
		}

		_, err = tx.Exec(ctx, `DELETE FROM dataset_windows WHERE instrument = $1 AND timeframe = $2`,
			ds.Instrument, ds.Timeframe)
		if err != nil {
			return mapError("delete previous windows", err)
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"dataset_windows"},
			[]string{"instrument", "timeframe", "window_index", "label", "features"},
			pgx.CopyFromSlice(len(ds.Windows), func(i int) ([]any, error) {
				w := ds.Windows[i]
				return []any{ds.Instrument, ds.Timeframe, int32(i), int16(w.Label), flatten(w.Features)}, nil
			}),
		)
		if err != nil {
			return mapError("copy dataset windows", err)
		}
		return nil
	})
}

// Get retrieves the dataset of an instrument. Returns ErrNotFound if not exists.
func (s *DatasetStore) Get(ctx context.Context, instrument, timeframe string) (*domain.Dataset, error) {
	ds := domain.Dataset{Instrument: instrument, Timeframe: timeframe}
	var means, stds []float64
	var counts []byte

	err := s.pool.QueryRow(ctx, `
		SELECT dataset_id, lookback, param_means, param_stds, label_counts, created_at
		FROM datasets
		WHERE instrument = $1 AND timeframe = $2
	`, instrument, timeframe).Scan(&ds.DatasetID, &ds.Lookback, &means, &stds, &counts, &ds.CreatedAt)
	if err != nil {
		return nil, mapError("get dataset", err)
	}

	if ds.Params, err = paramsFromArrays(means, stds); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(counts, &ds.LabelCounts); err != nil {
		return nil, fmt.Errorf("decode label counts: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT label, features
		FROM dataset_windows
		WHERE instrument = $1 AND timeframe = $2
		ORDER BY window_index ASC
	`, instrument, timeframe)
	if err != nil {
		return nil, fmt.Errorf("get dataset windows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var label int16
		var flat []float64
		if err := rows.Scan(&label, &flat); err != nil {
			return nil, fmt.Errorf("scan dataset window row: %w", err)
		}

		features, err := unflatten(flat, ds.Lookback)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", len(ds.Windows), err)
		}
		ds.Windows = append(ds.Windows, domain.FeatureWindow{Features: features, Label: domain.ActionLabel(label)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dataset window rows: %w", err)
	}

	return &ds, nil
}

// flatten lays window rows out row-major for a float8[] column.
func flatten(rows [][domain.FeatureCount]float64) []float64 {
	out := make([]float64, 0, len(rows)*domain.FeatureCount)
	for _, r := range rows {
		out = append(out, r[:]...)
	}
	return out
}

func unflatten(flat []float64, lookback int) ([][domain.FeatureCount]float64, error) {
	if len(flat) != lookback*domain.FeatureCount {
		return nil, fmt.Errorf("%d features, want %d: %w", len(flat), lookback*domain.FeatureCount, domain.ErrShapeMismatch)
	}
	rows := make([][domain.FeatureCount]float64, lookback)
	for i := range rows {
		copy(rows[i][:], flat[i*domain.FeatureCount:])
	}
	return rows, nil
}
