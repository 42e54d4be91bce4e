package domain

// PredictedTrade is a decoded classifier output aligned to its originating candle.
type PredictedTrade struct {
	TimestampMs int64       // candle open time, Unix ms
	Action      ActionLabel // never ActionNoTrade
	Direction   string      // Action.Direction()
	Price       float64     // candle close
	Confidence  float64     // max class probability
	WindowIndex int         // source window index
	CandleIndex int         // WindowIndex + lookback
}
