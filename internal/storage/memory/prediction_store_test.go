package memory

import (
	"context"
	"errors"
	"testing"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

func TestPredictionStore_InsertAndGet(t *testing.T) {
	store := NewPredictionStore()
	ctx := context.Background()

	trades := []domain.PredictedTrade{
		{WindowIndex: 7, CandleIndex: 27, Action: domain.ActionClose},
		{WindowIndex: 5, CandleIndex: 25, Action: domain.ActionOpenLong},
	}
	if err := store.InsertBulk(ctx, "run-1", "ZEC", trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRun(ctx, "run-1", "ZEC")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(got) != 2 || got[0].WindowIndex != 5 || got[1].WindowIndex != 7 {
		t.Errorf("Unexpected order: %+v", got)
	}

	other, _ := store.GetByRun(ctx, "run-2", "ZEC")
	if len(other) != 0 {
		t.Errorf("Expected no predictions for other run, got %d", len(other))
	}
}

func TestPredictionStore_DuplicateKey(t *testing.T) {
	store := NewPredictionStore()
	ctx := context.Background()

	_ = store.InsertBulk(ctx, "run-1", "ZEC", []domain.PredictedTrade{{WindowIndex: 1}})

	err := store.InsertBulk(ctx, "run-1", "ZEC", []domain.PredictedTrade{{WindowIndex: 2}, {WindowIndex: 1}})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	got, _ := store.GetByRun(ctx, "run-1", "ZEC")
	if len(got) != 1 {
		t.Errorf("Failed batch partially applied: %d rows", len(got))
	}

	// Same window index in another instrument is a different key.
	if err := store.InsertBulk(ctx, "run-1", "MET", []domain.PredictedTrade{{WindowIndex: 1}}); err != nil {
		t.Errorf("Unexpected error for other instrument: %v", err)
	}
}

func TestPredictionStore_InvalidInput(t *testing.T) {
	store := NewPredictionStore()

	err := store.InsertBulk(context.Background(), "", "ZEC", []domain.PredictedTrade{{WindowIndex: 1}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
