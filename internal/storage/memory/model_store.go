package memory

import (
	"context"
	"sync"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

// ModelStore is an in-memory implementation of storage.ModelStore.
type ModelStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ModelArtifact // keyed by instrument
}

// NewModelStore creates a new in-memory model store.
func NewModelStore() *ModelStore {
	return &ModelStore{
		data: make(map[string]*domain.ModelArtifact),
	}
}

// Save stores a copy of the model, replacing a previous one of the instrument.
func (s *ModelStore) Save(_ context.Context, m *domain.ModelArtifact) error {
	if m == nil || m.Instrument == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[m.Instrument] = cloneModel(m)
	return nil
}

// Get retrieves the model of an instrument. Returns ErrNotFound if not exists.
func (s *ModelStore) Get(_ context.Context, instrument string) (*domain.ModelArtifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[instrument]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneModel(m), nil
}

func cloneModel(m *domain.ModelArtifact) *domain.ModelArtifact {
	out := *m
	out.Classes = append([]domain.ActionLabel(nil), m.Classes...)
	out.Payload = append([]byte(nil), m.Payload...)
	return &out
}

var _ storage.ModelStore = (*ModelStore)(nil)
