package postgres

import (
	"context"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

// ModelStore implements storage.ModelStore using PostgreSQL.
type ModelStore struct {
	pool *Pool
}

// NewModelStore creates a new ModelStore.
func NewModelStore(pool *Pool) *ModelStore {
	return &ModelStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ModelStore = (*ModelStore)(nil)

// Save stores the model, replacing a previous model of the instrument.
func (s *ModelStore) Save(ctx context.Context, m *domain.ModelArtifact) error {
	if m == nil || m.Instrument == "" || m.Lookback <= 0 {
		return storage.ErrInvalidInput
	}

	classes := make([]int16, len(m.Classes))
	for i, c := range m.Classes {
		classes[i] = int16(c)
	}
	means, stds := paramsToArrays(m.Params)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO models (
			instrument, dataset_id, kind, lookback,
			param_means, param_stds, classes, payload, trained_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (instrument) DO UPDATE SET
			dataset_id = EXCLUDED.dataset_id,
			kind = EXCLUDED.kind,
			lookback = EXCLUDED.lookback,
			param_means = EXCLUDED.param_means,
			param_stds = EXCLUDED.param_stds,
			classes = EXCLUDED.classes,
			payload = EXCLUDED.payload,
			trained_at = EXCLUDED.trained_at
	`,
		m.Instrument, m.DatasetID, m.Kind, m.Lookback,
		means, stds, classes, m.Payload, m.TrainedAt,
	)
	if err != nil {
		return mapError("upsert model", err)
	}
	return nil
}

// Get retrieves the model of an instrument. Returns ErrNotFound if not exists.
func (s *ModelStore) Get(ctx context.Context, instrument string) (*domain.ModelArtifact, error) {
	m := domain.ModelArtifact{Instrument: instrument}
	var means, stds []float64
	var classes []int16

	err := s.pool.QueryRow(ctx, `
		SELECT dataset_id, kind, lookback, param_means, param_stds, classes, payload, trained_at
		FROM models
		WHERE instrument = $1
	`, instrument).Scan(&m.DatasetID, &m.Kind, &m.Lookback, &means, &stds, &classes, &m.Payload, &m.TrainedAt)
	if err != nil {
		return nil, mapError("get model", err)
	}

	if m.Params, err = paramsFromArrays(means, stds); err != nil {
		return nil, err
	}
	m.Classes = make([]domain.ActionLabel, len(classes))
	for i, c := range classes {
		m.Classes[i] = domain.ActionLabel(c)
	}

	return &m, nil
}
