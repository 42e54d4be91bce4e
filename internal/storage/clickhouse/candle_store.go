package clickhouse

import (
	"context"
	"fmt"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
type CandleStore struct {
	conn *Conn
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// InsertBulk adds candles of one series. Fails entire batch on duplicate timestamp.
// MergeTree does not enforce keys, so duplicates are checked before the insert.
func (s *CandleStore) InsertBulk(ctx context.Context, instrument, timeframe string, candles []domain.Candle) error {
	if instrument == "" || timeframe == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	seen := make(map[int64]struct{}, len(candles))
	minTs, maxTs := candles[0].TimestampMs, candles[0].TimestampMs
	for _, c := range candles {
		if c.TimestampMs < 0 {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[c.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		seen[c.TimestampMs] = struct{}{}
		minTs = min(minTs, c.TimestampMs)
		maxTs = max(maxTs, c.TimestampMs)
	}

	existing, err := s.timestamps(ctx, instrument, timeframe, minTs, maxTs)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for _, ts := range existing {
		if _, dup := seen[ts]; dup {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO candles (
			instrument, timeframe, timestamp_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range candles {
		err = batch.Append(
			instrument, timeframe, uint64(c.TimestampMs),
			c.Open, c.High, c.Low, c.Close, c.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetSeries retrieves the full series, ordered by timestamp ASC.
func (s *CandleStore) GetSeries(ctx context.Context, instrument, timeframe string) ([]domain.Candle, error) {
	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM candles
		WHERE instrument = ? AND timeframe = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, instrument, timeframe)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	candles, err := scanCandles(rows)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, storage.ErrNotFound
	}
	return candles, nil
}

// GetByTimeRange retrieves candles within [start, end] (inclusive).
func (s *CandleStore) GetByTimeRange(ctx context.Context, instrument, timeframe string, start, end int64) ([]domain.Candle, error) {
	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM candles
		WHERE instrument = ? AND timeframe = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, instrument, timeframe, uint64(max(start, 0)), uint64(max(end, 0)))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// timestamps lists stored timestamps of a series within [start, end].
func (s *CandleStore) timestamps(ctx context.Context, instrument, timeframe string, start, end int64) ([]int64, error) {
	query := `
		SELECT timestamp_ms FROM candles
		WHERE instrument = ? AND timeframe = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
	`

	rows, err := s.conn.Query(ctx, query, instrument, timeframe, uint64(start), uint64(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var ts uint64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, int64(ts))
	}
	return out, rows.Err()
}

func scanCandles(rows chRows) ([]domain.Candle, error) {
	var candles []domain.Candle

	for rows.Next() {
		var c domain.Candle
		var timestampMs uint64

		if err := rows.Scan(&timestampMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}

		c.TimestampMs = int64(timestampMs)
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return candles, nil
}
