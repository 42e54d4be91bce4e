package loader

import (
	"context"
	"errors"
	"fmt"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/storage"
)

// StoreCandles reads candle series from a storage.CandleStore.
type StoreCandles struct {
	Store storage.CandleStore
}

// Candles returns the stored series. An absent series returns ErrMissingInput.
func (s StoreCandles) Candles(ctx context.Context, instrument, timeframe string) ([]domain.Candle, error) {
	candles, err := s.Store.GetSeries(ctx, instrument, timeframe)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("candles %s %s: %w", instrument, timeframe, domain.ErrMissingInput)
		}
		return nil, fmt.Errorf("load candles %s %s: %w", instrument, timeframe, err)
	}
	return candles, nil
}

// Import copies the file series of each instrument into store. Series whose
// file is missing are skipped and reported in the returned slice.
func Import(ctx context.Context, src CandleSource, store storage.CandleStore, timeframe string, instruments []string) (missing []string, err error) {
	for _, instrument := range instruments {
		candles, err := src.Candles(ctx, instrument, timeframe)
		if errors.Is(err, domain.ErrMissingInput) {
			missing = append(missing, instrument)
			continue
		}
		if err != nil {
			return missing, err
		}
		if err := store.InsertBulk(ctx, instrument, timeframe, candles); err != nil {
			return missing, fmt.Errorf("import %s: %w", instrument, err)
		}
	}
	return missing, nil
}

var _ CandleSource = StoreCandles{}
