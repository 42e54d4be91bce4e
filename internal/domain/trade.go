package domain

// TradeEvent is one executed trade from the trade history of an instrument.
type TradeEvent struct {
	Instrument string  // coin symbol, e.g. "ZEC"
	TimeMs     float64 // execution time, Unix ms
	Direction  string  // raw direction token, e.g. "Open Long", "Close Short", "Buy"
	Price      float64
	Size       float64
	ClosedPnl  float64 // nonzero marks a closing trade
}

// PositionHistory is the append-only list of trades already attributed to
// earlier candles during one labeling pass over one instrument.
type PositionHistory struct {
	trades []TradeEvent
}

// Append records a trade as attributed.
func (h *PositionHistory) Append(t TradeEvent) {
	h.trades = append(h.trades, t)
}

// Last returns the most recently attributed trade.
func (h *PositionHistory) Last() (TradeEvent, bool) {
	if len(h.trades) == 0 {
		return TradeEvent{}, false
	}
	return h.trades[len(h.trades)-1], true
}

// Len returns the number of attributed trades.
func (h *PositionHistory) Len() int {
	return len(h.trades)
}

// Trades returns a copy of the attributed trades in attribution order.
func (h *PositionHistory) Trades() []TradeEvent {
	out := make([]TradeEvent, len(h.trades))
	copy(out, h.trades)
	return out
}
