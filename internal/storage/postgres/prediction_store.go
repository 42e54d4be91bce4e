package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

// PredictionStore implements storage.PredictionStore using PostgreSQL.
type PredictionStore struct {
	pool *Pool
}

// NewPredictionStore creates a new PredictionStore.
func NewPredictionStore(pool *Pool) *PredictionStore {
	return &PredictionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PredictionStore = (*PredictionStore)(nil)

// InsertBulk adds the predictions of one run atomically. Fails entire batch on any duplicate.
func (s *PredictionStore) InsertBulk(ctx context.Context, runID, instrument string, trades []domain.PredictedTrade) error {
	if runID == "" || instrument == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	query := `
		INSERT INTO predicted_trades (
			run_id, instrument, window_index, candle_index,
			timestamp_ms, action, direction, price, confidence
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(query,
			runID, instrument, t.WindowIndex, t.CandleIndex,
			t.TimestampMs, t.Action.String(), t.Direction, t.Price, t.Confidence,
		)
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return mapError("insert predicted trades", err)
		}
		return nil
	})
}

// GetByRun retrieves the predictions of a run, ordered by window index.
func (s *PredictionStore) GetByRun(ctx context.Context, runID, instrument string) ([]domain.PredictedTrade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT window_index, candle_index, timestamp_ms, action, direction, price, confidence
		FROM predicted_trades
		WHERE run_id = $1 AND instrument = $2
		ORDER BY window_index ASC
	`, runID, instrument)
	if err != nil {
		return nil, fmt.Errorf("get predicted trades by run: %w", err)
	}
	defer rows.Close()

	var trades []domain.PredictedTrade
	for rows.Next() {
		var t domain.PredictedTrade
		var action string

		err := rows.Scan(&t.WindowIndex, &t.CandleIndex, &t.TimestampMs, &action, &t.Direction, &t.Price, &t.Confidence)
		if err != nil {
			return nil, fmt.Errorf("scan predicted trade row: %w", err)
		}

		if t.Action, err = domain.ParseActionLabel(action); err != nil {
			return nil, fmt.Errorf("predicted trade %d: %w", t.WindowIndex, err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predicted trade rows: %w", err)
	}

	return trades, nil
}
