package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

// ModelStore keeps one <instrument>-model.json file per instrument.
type ModelStore struct {
	dir string
}

// NewModelStore creates a store rooted at dir.
func NewModelStore(dir string) *ModelStore {
	return &ModelStore{dir: dir}
}

// Compile-time interface check.
var _ storage.ModelStore = (*ModelStore)(nil)

// Path returns the file a model is stored in.
func (s *ModelStore) Path(instrument string) string {
	return filepath.Join(s.dir, strings.ToLower(instrument)+"-model.json")
}

// Save writes the model, replacing a previous file of the instrument.
func (s *ModelStore) Save(_ context.Context, m *domain.ModelArtifact) error {
	if m == nil || m.Instrument == "" {
		return storage.ErrInvalidInput
	}
	if err := writeJSON(s.Path(m.Instrument), m); err != nil {
		return fmt.Errorf("save model %s: %w", m.Instrument, err)
	}
	return nil
}

// Get reads the model of an instrument. Returns ErrNotFound if the file does not exist.
func (s *ModelStore) Get(_ context.Context, instrument string) (*domain.ModelArtifact, error) {
	var m domain.ModelArtifact
	if err := readJSON(s.Path(instrument), &m); err != nil {
		return nil, err
	}
	return &m, nil
}
