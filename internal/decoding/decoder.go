// Package decoding maps classifier probability vectors back to discrete,
// timestamped trade records aligned to their originating candles.
package decoding

import (
	"fmt"
	"math"

	"copytrader-lab/internal/classifier"
	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/windowing"
)

// Stats counts how windows were resolved during Decode.
type Stats struct {
	Windows     int
	NoTrade     int
	OutOfBounds int
	Emitted     int

	// Skipped holds one domain.ErrOutOfBounds error per out-of-bounds window.
	Skipped []error
}

// ArgMax returns the index and value of the largest probability.
// The first maximum wins ties. An empty vector returns (-1, 0). The result is
// undefined for vectors holding NaN; CheckShape rejects them.
func ArgMax(probs []float64) (int, float64) {
	if len(probs) == 0 {
		return -1, 0
	}
	best := 0
	for k := 1; k < len(probs); k++ {
		if probs[k] > probs[best] {
			best = k
		}
	}
	return best, probs[best]
}

// CheckShape verifies one vector per window, a uniform vector length that
// matches the class list when one is given, and finite probabilities.
func CheckShape(out classifier.Output, windowCount int) error {
	if len(out.Probabilities) != windowCount {
		return fmt.Errorf("%d probability vectors for %d windows: %w",
			len(out.Probabilities), windowCount, domain.ErrShapeMismatch)
	}

	width := len(out.Classes)
	for j, probs := range out.Probabilities {
		if width == 0 {
			width = len(probs)
		}
		if len(probs) == 0 || len(probs) != width {
			return fmt.Errorf("vector %d has %d classes, want %d: %w", j, len(probs), width, domain.ErrShapeMismatch)
		}
		for k, p := range probs {
			if math.IsNaN(p) || math.IsInf(p, 0) {
				return fmt.Errorf("vector %d class %d probability %v: %w", j, k, p, domain.ErrShapeMismatch)
			}
		}
	}
	return nil
}

// Decode turns window j's arg-max class into a trade on candle j+lookback.
// no_trade windows produce nothing; windows whose candle index is past the
// series end are skipped and counted. Output follows window order.
func Decode(out classifier.Output, candles []domain.Candle, lookback int) ([]domain.PredictedTrade, Stats, error) {
	stats := Stats{Windows: len(out.Probabilities)}
	var trades []domain.PredictedTrade

	for j, probs := range out.Probabilities {
		k, confidence := ArgMax(probs)

		action, ok := out.LabelAt(k)
		if !ok {
			return nil, stats, fmt.Errorf("window %d arg-max class %d has no label: %w", j, k, domain.ErrShapeMismatch)
		}

		if action == domain.ActionNoTrade {
			stats.NoTrade++
			continue
		}

		idx := windowing.CandleIndex(j, lookback)
		if idx < 0 || idx >= len(candles) {
			stats.OutOfBounds++
			stats.Skipped = append(stats.Skipped,
				fmt.Errorf("window %d candle %d of %d: %w", j, idx, len(candles), domain.ErrOutOfBounds))
			continue
		}
		candle := candles[idx]

		trades = append(trades, domain.PredictedTrade{
			TimestampMs: candle.TimestampMs,
			Action:      action,
			Direction:   action.Direction(),
			Price:       candle.Close,
			Confidence:  confidence,
			WindowIndex: j,
			CandleIndex: idx,
		})
		stats.Emitted++
	}

	return trades, stats, nil
}

// Distribution counts predicted trades by action.
func Distribution(trades []domain.PredictedTrade) map[domain.ActionLabel]int {
	counts := make(map[domain.ActionLabel]int)
	for _, t := range trades {
		counts[t.Action]++
	}
	return counts
}
