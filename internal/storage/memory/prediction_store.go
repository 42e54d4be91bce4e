package memory

import (
	"context"
	"sort"
	"sync"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

type runKey struct {
	runID      string
	instrument string
}

// PredictionStore is an in-memory implementation of storage.PredictionStore.
type PredictionStore struct {
	mu   sync.RWMutex
	data map[runKey]map[int]domain.PredictedTrade // keyed by run, then window_index
}

// NewPredictionStore creates a new in-memory prediction store.
func NewPredictionStore() *PredictionStore {
	return &PredictionStore{
		data: make(map[runKey]map[int]domain.PredictedTrade),
	}
}

// InsertBulk adds the predictions of one run atomically. Fails entire batch on any duplicate.
func (s *PredictionStore) InsertBulk(_ context.Context, runID, instrument string, trades []domain.PredictedTrade) error {
	if runID == "" || instrument == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := runKey{runID, instrument}
	existing := s.data[key]

	batchKeys := make(map[int]struct{}, len(trades))
	for _, t := range trades {
		if _, exists := existing[t.WindowIndex]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.WindowIndex]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.WindowIndex] = struct{}{}
	}

	if existing == nil {
		existing = make(map[int]domain.PredictedTrade, len(trades))
		s.data[key] = existing
	}
	for _, t := range trades {
		existing[t.WindowIndex] = t
	}

	return nil
}

// GetByRun retrieves the predictions of a run, ordered by window index.
func (s *PredictionStore) GetByRun(_ context.Context, runID, instrument string) ([]domain.PredictedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.PredictedTrade
	for _, t := range s.data[runKey{runID, instrument}] {
		result = append(result, t)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].WindowIndex < result[j].WindowIndex
	})

	return result, nil
}

var _ storage.PredictionStore = (*PredictionStore)(nil)
