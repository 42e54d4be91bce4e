package memory

import (
	"context"
	"sync"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

// DatasetStore is an in-memory implementation of storage.DatasetStore.
type DatasetStore struct {
	mu   sync.RWMutex
	data map[seriesKey]*domain.Dataset
}

// NewDatasetStore creates a new in-memory dataset store.
func NewDatasetStore() *DatasetStore {
	return &DatasetStore{
		data: make(map[seriesKey]*domain.Dataset),
	}
}

// Save stores a copy of the dataset, replacing a previous one of the same series.
func (s *DatasetStore) Save(_ context.Context, ds *domain.Dataset) error {
	if ds == nil || ds.Instrument == "" || ds.Timeframe == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[seriesKey{ds.Instrument, ds.Timeframe}] = cloneDataset(ds)
	return nil
}

// Get retrieves the dataset of an instrument. Returns ErrNotFound if not exists.
func (s *DatasetStore) Get(_ context.Context, instrument, timeframe string) (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, exists := s.data[seriesKey{instrument, timeframe}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneDataset(ds), nil
}

// cloneDataset deep-copies windows and label counts so callers never share
// backing arrays with the store.
func cloneDataset(ds *domain.Dataset) *domain.Dataset {
	out := *ds

	out.Windows = make([]domain.FeatureWindow, len(ds.Windows))
	for i, w := range ds.Windows {
		rows := make([][domain.FeatureCount]float64, len(w.Features))
		copy(rows, w.Features)
		out.Windows[i] = domain.FeatureWindow{Features: rows, Label: w.Label}
	}

	if ds.LabelCounts != nil {
		out.LabelCounts = make(map[domain.ActionLabel]int, len(ds.LabelCounts))
		for k, v := range ds.LabelCounts {
			out.LabelCounts[k] = v
		}
	}

	return &out
}

var _ storage.DatasetStore = (*DatasetStore)(nil)
