package memory

import (
	"context"
	"sort"
	"sync"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

type seriesKey struct {
	instrument string
	timeframe  string
}

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[seriesKey]map[int64]domain.Candle // keyed by series, then timestamp_ms
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[seriesKey]map[int64]domain.Candle),
	}
}

// InsertBulk adds candles of one series. Fails entire batch on duplicate timestamp.
func (s *CandleStore) InsertBulk(_ context.Context, instrument, timeframe string, candles []domain.Candle) error {
	if instrument == "" || timeframe == "" {
		return storage.ErrInvalidInput
	}
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := seriesKey{instrument, timeframe}
	series := s.data[key]

	batchKeys := make(map[int64]struct{}, len(candles))
	for _, c := range candles {
		if _, exists := series[c.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[c.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[c.TimestampMs] = struct{}{}
	}

	if series == nil {
		series = make(map[int64]domain.Candle, len(candles))
		s.data[key] = series
	}
	for _, c := range candles {
		series[c.TimestampMs] = c
	}

	return nil
}

// GetSeries retrieves the full series ordered by timestamp ASC.
func (s *CandleStore) GetSeries(_ context.Context, instrument, timeframe string) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.data[seriesKey{instrument, timeframe}]
	if !ok || len(series) == 0 {
		return nil, storage.ErrNotFound
	}
	return sortedCandles(series, func(domain.Candle) bool { return true }), nil
}

// GetByTimeRange retrieves candles within [start, end] (inclusive).
func (s *CandleStore) GetByTimeRange(_ context.Context, instrument, timeframe string, start, end int64) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.data[seriesKey{instrument, timeframe}]
	return sortedCandles(series, func(c domain.Candle) bool {
		return c.TimestampMs >= start && c.TimestampMs <= end
	}), nil
}

func sortedCandles(series map[int64]domain.Candle, keep func(domain.Candle) bool) []domain.Candle {
	var result []domain.Candle
	for _, c := range series {
		if keep(c) {
			result = append(result, c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result
}

var _ storage.CandleStore = (*CandleStore)(nil)
