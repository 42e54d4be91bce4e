package labeling

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"copytrader-lab/internal/domain"
)

func historyOf(directions ...string) *domain.PositionHistory {
	var h domain.PositionHistory
	for i, d := range directions {
		h.Append(domain.TradeEvent{Direction: d, TimeMs: float64(i)})
	}
	return &h
}

func TestDetermineAction(t *testing.T) {
	tests := []struct {
		name    string
		history *domain.PositionHistory
		trade   domain.TradeEvent
		want    domain.ActionLabel
	}{
		{
			name:    "empty history long",
			history: historyOf(),
			trade:   domain.TradeEvent{Direction: "Long"},
			want:    domain.ActionOpenLong,
		},
		{
			name:    "empty history buy",
			history: historyOf(),
			trade:   domain.TradeEvent{Direction: "Buy"},
			want:    domain.ActionOpenLong,
		},
		{
			name:    "empty history short",
			history: historyOf(),
			trade:   domain.TradeEvent{Direction: "Open Short"},
			want:    domain.ActionOpenShort,
		},
		{
			name:    "empty history ignores closed pnl",
			history: historyOf(),
			trade:   domain.TradeEvent{Direction: "Close Long", ClosedPnl: 4.2},
			want:    domain.ActionOpenLong,
		},
		{
			name:    "same direction adds",
			history: historyOf("long"),
			trade:   domain.TradeEvent{Direction: "long"},
			want:    domain.ActionAdd,
		},
		{
			name:    "same direction case insensitive",
			history: historyOf("Open Long"),
			trade:   domain.TradeEvent{Direction: "open long"},
			want:    domain.ActionAdd,
		},
		{
			name:    "closed pnl closes regardless of direction",
			history: historyOf("long"),
			trade:   domain.TradeEvent{Direction: "long", ClosedPnl: -12.5},
			want:    domain.ActionClose,
		},
		{
			name:    "direction flip opens",
			history: historyOf("Open Long"),
			trade:   domain.TradeEvent{Direction: "Open Short"},
			want:    domain.ActionOpenShort,
		},
		{
			name:    "unrecognized token defaults to short",
			history: historyOf(),
			trade:   domain.TradeEvent{Direction: "Liquidation"},
			want:    domain.ActionOpenShort,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineAction(tt.trade, tt.history); got != tt.want {
				t.Errorf("DetermineAction() = %v, want %v", got, tt.want)
			}
		})
	}
}

func minuteCandles(n int) []domain.Candle {
	candles := make([]domain.Candle, n)
	for i := range candles {
		candles[i] = domain.Candle{TimestampMs: int64(i) * 60000, Close: float64(i)}
	}
	return candles
}

func TestLabelCandles_Buckets(t *testing.T) {
	candles := minuteCandles(4)
	trades := []domain.TradeEvent{
		{TimeMs: -5000, Direction: "Open Long"},                 // before first bucket
		{TimeMs: 10000, Direction: "Open Long"},                 // candle 0
		{TimeMs: 20000, Direction: "Open Long"},                 // same bucket, passed over
		{TimeMs: 130000, Direction: "Close Long", ClosedPnl: 5}, // candle 2
		{TimeMs: 999999, Direction: "Open Short"},               // after last bucket
	}

	labels, err := LabelCandles(candles, trades, time.Minute)
	if err != nil {
		t.Fatalf("LabelCandles: %v", err)
	}

	want := []domain.ActionLabel{
		domain.ActionOpenLong,
		domain.ActionNoTrade,
		domain.ActionClose,
		domain.ActionNoTrade,
	}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("labels = %v, want %v", labels, want)
	}
}

func TestLabelCandles_BucketEndIsExclusive(t *testing.T) {
	candles := minuteCandles(2)
	trades := []domain.TradeEvent{
		{TimeMs: 60000, Direction: "Buy"},
	}

	labels, err := LabelCandles(candles, trades, time.Minute)
	if err != nil {
		t.Fatalf("LabelCandles: %v", err)
	}
	if labels[0] != domain.ActionNoTrade || labels[1] != domain.ActionOpenLong {
		t.Errorf("labels = %v, want [no_trade open_long]", labels)
	}
}

func TestLabelCandles_SkippedTradeNotInHistory(t *testing.T) {
	// Second trade shares candle 0's bucket and is never attributed, so the
	// third trade compares against the first one.
	candles := minuteCandles(3)
	trades := []domain.TradeEvent{
		{TimeMs: 1000, Direction: "Open Long"},
		{TimeMs: 2000, Direction: "Open Short"},
		{TimeMs: 61000, Direction: "Open Long"},
	}

	labels, err := LabelCandles(candles, trades, time.Minute)
	if err != nil {
		t.Fatalf("LabelCandles: %v", err)
	}
	if labels[1] != domain.ActionAdd {
		t.Errorf("labels[1] = %v, want add", labels[1])
	}
}

func TestLabelCandles_FiveMinuteBuckets(t *testing.T) {
	candles := []domain.Candle{
		{TimestampMs: 0},
		{TimestampMs: 300000},
	}
	trades := []domain.TradeEvent{
		{TimeMs: 240000, Direction: "Open Short"},
	}

	labels, err := LabelCandles(candles, trades, 5*time.Minute)
	if err != nil {
		t.Fatalf("LabelCandles: %v", err)
	}
	if labels[0] != domain.ActionOpenShort {
		t.Errorf("labels[0] = %v, want open_short", labels[0])
	}
}

func TestLabelCandles_Deterministic(t *testing.T) {
	candles := minuteCandles(10)
	trades := []domain.TradeEvent{
		{TimeMs: 5000, Direction: "Open Long"},
		{TimeMs: 125000, Direction: "Open Long"},
		{TimeMs: 250000, Direction: "Close Long", ClosedPnl: 1.5},
		{TimeMs: 430000, Direction: "Open Short"},
	}

	first, err := LabelCandles(candles, trades, time.Minute)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := LabelCandles(candles, trades, time.Minute)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("labels differ between runs: %v vs %v", first, second)
	}
	if len(first) != len(candles) {
		t.Errorf("expected %d labels, got %d", len(candles), len(first))
	}
}

func TestLabelCandles_NoTrades(t *testing.T) {
	labels, err := LabelCandles(minuteCandles(3), nil, time.Minute)
	if err != nil {
		t.Fatalf("LabelCandles: %v", err)
	}
	for i, l := range labels {
		if l != domain.ActionNoTrade {
			t.Errorf("labels[%d] = %v, want no_trade", i, l)
		}
	}
}

func TestLabelCandles_UnsortedTrades(t *testing.T) {
	trades := []domain.TradeEvent{
		{TimeMs: 2000, Direction: "Buy"},
		{TimeMs: 1000, Direction: "Sell"},
	}

	_, err := LabelCandles(minuteCandles(2), trades, time.Minute)
	if !errors.Is(err, domain.ErrUnsortedSeries) {
		t.Fatalf("expected ErrUnsortedSeries, got %v", err)
	}
}

func TestLabelCandles_UnsortedCandles(t *testing.T) {
	candles := []domain.Candle{{TimestampMs: 60000}, {TimestampMs: 60000}}

	_, err := LabelCandles(candles, nil, time.Minute)
	if !errors.Is(err, domain.ErrUnsortedSeries) {
		t.Fatalf("expected ErrUnsortedSeries, got %v", err)
	}
}

func TestLabelCandles_InvalidInterval(t *testing.T) {
	_, err := LabelCandles(minuteCandles(2), nil, 0)
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestSortTrades_Stable(t *testing.T) {
	trades := []domain.TradeEvent{
		{TimeMs: 3000, Direction: "c"},
		{TimeMs: 1000, Direction: "a"},
		{TimeMs: 1000, Direction: "b"},
	}

	SortTrades(trades)

	got := []string{trades[0].Direction, trades[1].Direction, trades[2].Direction}
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("order = %v, want [a b c]", got)
	}
	if err := ValidateTradeOrder(trades); err != nil {
		t.Errorf("sorted trades rejected: %v", err)
	}
}

func TestDistribution(t *testing.T) {
	labels := []domain.ActionLabel{
		domain.ActionNoTrade, domain.ActionNoTrade, domain.ActionOpenLong, domain.ActionClose,
	}

	got := Distribution(labels)
	if got[domain.ActionNoTrade] != 2 || got[domain.ActionOpenLong] != 1 || got[domain.ActionClose] != 1 {
		t.Errorf("Distribution() = %v", got)
	}
	if _, ok := got[domain.ActionAdd]; ok {
		t.Error("absent labels should not appear")
	}
}
