// Package windowing slices a labeled candle series into fixed-length
// lookback windows paired with the label of the following candle.
package windowing

import (
	"fmt"

	"copytrader-lab/internal/domain"
)

// Build returns one window per index i in [lookback, len(candles)):
// features of candles[i-lookback:i] paired with labels[i], in ascending i.
//
// A nil labels slice builds inference windows (every label no_trade).
// Returns ErrInsufficientData when no window can be formed.
func Build(candles []domain.Candle, labels []domain.ActionLabel, lookback int) ([]domain.FeatureWindow, error) {
	if lookback <= 0 {
		return nil, fmt.Errorf("lookback %d: %w", lookback, domain.ErrInsufficientData)
	}
	if labels != nil && len(labels) != len(candles) {
		return nil, fmt.Errorf("%d labels for %d candles: %w", len(labels), len(candles), domain.ErrShapeMismatch)
	}
	if len(candles) < lookback {
		return nil, fmt.Errorf("%d candles < lookback %d: %w", len(candles), lookback, domain.ErrInsufficientData)
	}

	rows := make([][domain.FeatureCount]float64, len(candles))
	for i, c := range candles {
		rows[i] = c.Features()
	}

	windows := make([]domain.FeatureWindow, 0, len(candles)-lookback)
	for i := lookback; i < len(candles); i++ {
		features := make([][domain.FeatureCount]float64, lookback)
		copy(features, rows[i-lookback:i])

		label := domain.ActionNoTrade
		if labels != nil {
			label = labels[i]
		}

		windows = append(windows, domain.FeatureWindow{
			Features: features,
			Label:    label,
		})
	}

	return windows, nil
}

// CandleIndex maps a window index back to the candle its label belongs to.
func CandleIndex(windowIndex, lookback int) int {
	return windowIndex + lookback
}
