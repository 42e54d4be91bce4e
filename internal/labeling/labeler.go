// Package labeling assigns per-candle action labels by walking executed
// trades against a candle series with a position-aware state machine.
package labeling

import (
	"fmt"
	"strings"
	"time"

	"copytrader-lab/internal/domain"
)

// DetermineAction classifies a trade given the trades already attributed
// to earlier candles of the same instrument.
//
// Transitions:
//   - empty history: open_long if the direction contains "long" or "buy", else open_short
//   - nonzero closed PnL: close
//   - same direction token as the previous trade: add
//   - otherwise: open_long / open_short by the empty-history rule
//
// Tokens with neither marker fall through to open_short.
func DetermineAction(trade domain.TradeEvent, history *domain.PositionHistory) domain.ActionLabel {
	direction := strings.ToLower(trade.Direction)

	last, ok := history.Last()
	if !ok {
		return openAction(direction)
	}

	if trade.ClosedPnl != 0 {
		return domain.ActionClose
	}

	if direction == strings.ToLower(last.Direction) {
		return domain.ActionAdd
	}

	return openAction(direction)
}

func openAction(direction string) domain.ActionLabel {
	if strings.Contains(direction, "long") || strings.Contains(direction, "buy") {
		return domain.ActionOpenLong
	}
	return domain.ActionOpenShort
}

// LabelCandles returns one label per candle. Candle i owns the half-open
// bucket [timestamp, timestamp+interval); at most one trade is attributed
// per bucket and the rest are passed over by the cursor.
//
// Candles must be strictly increasing and trades ascending by time,
// otherwise ErrUnsortedSeries is returned.
func LabelCandles(candles []domain.Candle, trades []domain.TradeEvent, interval time.Duration) ([]domain.ActionLabel, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("label bucket %s: %w", interval, domain.ErrInsufficientData)
	}
	if err := ValidateCandleOrder(candles); err != nil {
		return nil, err
	}
	if err := ValidateTradeOrder(trades); err != nil {
		return nil, err
	}

	labels := make([]domain.ActionLabel, len(candles))
	bucketMs := float64(interval.Milliseconds())

	var history domain.PositionHistory
	cursor := 0

	for i, candle := range candles {
		start := float64(candle.TimestampMs)
		end := start + bucketMs

		for cursor < len(trades) && trades[cursor].TimeMs < end {
			if trades[cursor].TimeMs >= start {
				labels[i] = DetermineAction(trades[cursor], &history)
				history.Append(trades[cursor])
				break
			}
			cursor++
		}
	}

	return labels, nil
}

// Distribution counts labels by action.
func Distribution(labels []domain.ActionLabel) map[domain.ActionLabel]int {
	counts := make(map[domain.ActionLabel]int)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}
