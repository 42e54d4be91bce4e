package labeling

import (
	"fmt"
	"sort"

	"copytrader-lab/internal/domain"
)

// SortTrades orders trades by execution time ascending.
// The sort is stable so trades sharing a timestamp keep their file order.
func SortTrades(trades []domain.TradeEvent) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].TimeMs < trades[j].TimeMs
	})
}

// ValidateTradeOrder checks that trades are ascending by time.
func ValidateTradeOrder(trades []domain.TradeEvent) error {
	for i := 1; i < len(trades); i++ {
		if trades[i].TimeMs < trades[i-1].TimeMs {
			return fmt.Errorf("trade %d at %.0f precedes trade %d at %.0f: %w",
				i, trades[i].TimeMs, i-1, trades[i-1].TimeMs, domain.ErrUnsortedSeries)
		}
	}
	return nil
}

// ValidateCandleOrder checks that candle timestamps are strictly increasing.
func ValidateCandleOrder(candles []domain.Candle) error {
	for i := 1; i < len(candles); i++ {
		if candles[i].TimestampMs <= candles[i-1].TimestampMs {
			return fmt.Errorf("candle %d at %d not after candle %d at %d: %w",
				i, candles[i].TimestampMs, i-1, candles[i-1].TimestampMs, domain.ErrUnsortedSeries)
		}
	}
	return nil
}
