package memory

import (
	"context"
	"errors"
	"testing"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

func TestModelStore_SaveAndGet(t *testing.T) {
	store := NewModelStore()
	ctx := context.Background()

	m := &domain.ModelArtifact{
		Instrument: "STRK",
		Kind:       "centroid",
		Lookback:   20,
		Classes:    []domain.ActionLabel{domain.ActionNoTrade, domain.ActionClose},
		Payload:    []byte(`{"lookback":20}`),
	}
	if err := store.Save(ctx, m); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	m.Payload[0] = 'X'

	got, err := store.Get(ctx, "STRK")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Payload) != `{"lookback":20}` {
		t.Errorf("Payload mismatch: got %s", got.Payload)
	}
	if len(got.Classes) != 2 || got.Classes[1] != domain.ActionClose {
		t.Errorf("Classes mismatch: got %v", got.Classes)
	}
}

func TestModelStore_NotFound(t *testing.T) {
	store := NewModelStore()

	_, err := store.Get(context.Background(), "STRK")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
