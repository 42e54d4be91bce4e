package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"copytrader-lab/internal/storage"
)

// Generator produces reports from stored datasets and models.
type Generator struct {
	datasets storage.DatasetStore
	models   storage.ModelStore
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(datasets storage.DatasetStore, models storage.ModelStore) *Generator {
	return &Generator{
		datasets: datasets,
		models:   models,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report for the given instruments and timeframe.
func (g *Generator) Generate(ctx context.Context, instruments []string, timeframe string) (*Report, error) {
	r := &Report{
		GeneratedAt: g.now(),
		Timeframe:   timeframe,
	}

	datasetIDs := make(map[string]string)

	for _, instrument := range instruments {
		ds, err := g.datasets.Get(ctx, instrument, timeframe)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			r.MissingDatasets = append(r.MissingDatasets, instrument)
		case err != nil:
			return nil, fmt.Errorf("load dataset %s: %w", instrument, err)
		default:
			datasetIDs[instrument] = ds.DatasetID
			r.Datasets = append(r.Datasets, DatasetRow{
				Instrument:  instrument,
				DatasetID:   ds.DatasetID,
				Lookback:    ds.Lookback,
				Windows:     len(ds.Windows),
				LabelCounts: ds.LabelCounts,
				CreatedAt:   ds.CreatedAt,
			})
		}

		m, err := g.models.Get(ctx, instrument)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			r.MissingModels = append(r.MissingModels, instrument)
		case err != nil:
			return nil, fmt.Errorf("load model %s: %w", instrument, err)
		default:
			current, ok := datasetIDs[instrument]
			r.Models = append(r.Models, ModelRow{
				Instrument: instrument,
				Kind:       m.Kind,
				DatasetID:  m.DatasetID,
				Classes:    m.Classes,
				TrainedAt:  m.TrainedAt,
				Stale:      ok && current != m.DatasetID,
			})
		}
	}

	return r, nil
}
