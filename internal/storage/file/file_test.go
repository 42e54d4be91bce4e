package file

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

func TestDatasetStore_RoundTripKeepsExactParams(t *testing.T) {
	store := NewDatasetStore(t.TempDir())
	ctx := context.Background()

	ds := &domain.Dataset{
		DatasetID:  "abc",
		Instrument: "ZEC",
		Timeframe:  "5m",
		Lookback:   1,
		Windows: []domain.FeatureWindow{
			{Features: [][domain.FeatureCount]float64{{0.1, -0.2, 0.3, 1e-12, math.Pi}}, Label: domain.ActionAdd},
		},
		Params: domain.NormalizationParams{
			Means: [domain.FeatureCount]float64{1.0 / 3, 2.0 / 3, math.Sqrt2, 1e300, -1e-300},
			Stds:  [domain.FeatureCount]float64{1, 0.1 + 0.2, math.E, 1, 1},
		},
		LabelCounts: map[domain.ActionLabel]int{domain.ActionAdd: 1, domain.ActionNoTrade: 0},
		CreatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, ds))

	got, err := store.Get(ctx, "ZEC", "5m")
	require.NoError(t, err)

	assert.Equal(t, ds.Params, got.Params)
	assert.Equal(t, ds.Windows, got.Windows)
	assert.Equal(t, ds.LabelCounts, got.LabelCounts)
	assert.True(t, ds.CreatedAt.Equal(got.CreatedAt))
}

func TestDatasetStore_NotFound(t *testing.T) {
	store := NewDatasetStore(t.TempDir())

	_, err := store.Get(context.Background(), "ZEC", "5m")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDatasetStore_SaveCreatesDirAndReplaces(t *testing.T) {
	dir := t.TempDir() + "/nested/datasets"
	store := NewDatasetStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.Dataset{DatasetID: "one", Instrument: "MET", Timeframe: "5m"}))
	require.NoError(t, store.Save(ctx, &domain.Dataset{DatasetID: "two", Instrument: "MET", Timeframe: "5m"}))

	got, err := store.Get(ctx, "MET", "5m")
	require.NoError(t, err)
	assert.Equal(t, "two", got.DatasetID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestDatasetStore_InvalidInput(t *testing.T) {
	store := NewDatasetStore(t.TempDir())

	assert.ErrorIs(t, store.Save(context.Background(), &domain.Dataset{Instrument: "ZEC"}), storage.ErrInvalidInput)
}

func TestModelStore_RoundTrip(t *testing.T) {
	store := NewModelStore(t.TempDir())
	ctx := context.Background()

	m := &domain.ModelArtifact{
		Instrument: "ASTER",
		DatasetID:  "abc",
		Kind:       "centroid",
		Lookback:   20,
		Classes:    []domain.ActionLabel{domain.ActionNoTrade, domain.ActionOpenShort},
		Payload:    []byte(`{"labels":[0,2]}`),
	}
	require.NoError(t, store.Save(ctx, m))
	assert.FileExists(t, store.Path("ASTER"))

	got, err := store.Get(ctx, "ASTER")
	require.NoError(t, err)
	assert.Equal(t, m.Classes, got.Classes)
	assert.Equal(t, m.Payload, got.Payload)

	_, err = store.Get(ctx, "ZEC")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
