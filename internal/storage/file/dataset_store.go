package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

// DatasetStore keeps one <instrument>-<timeframe>-dataset.json file per series.
type DatasetStore struct {
	dir string
}

// NewDatasetStore creates a store rooted at dir. The directory is created on first save.
func NewDatasetStore(dir string) *DatasetStore {
	return &DatasetStore{dir: dir}
}

// Compile-time interface check.
var _ storage.DatasetStore = (*DatasetStore)(nil)

// Path returns the file a dataset is stored in.
func (s *DatasetStore) Path(instrument, timeframe string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s-dataset.json", strings.ToLower(instrument), timeframe))
}

// Save writes the dataset, replacing a previous file of the same series.
func (s *DatasetStore) Save(_ context.Context, ds *domain.Dataset) error {
	if ds == nil || ds.Instrument == "" || ds.Timeframe == "" {
		return storage.ErrInvalidInput
	}
	if err := writeJSON(s.Path(ds.Instrument, ds.Timeframe), ds); err != nil {
		return fmt.Errorf("save dataset %s: %w", ds.Instrument, err)
	}
	return nil
}

// Get reads the dataset of an instrument. Returns ErrNotFound if the file does not exist.
func (s *DatasetStore) Get(_ context.Context, instrument, timeframe string) (*domain.Dataset, error) {
	var ds domain.Dataset
	if err := readJSON(s.Path(instrument, timeframe), &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}
