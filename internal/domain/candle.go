package domain

// FeatureCount is the number of per-candle features fed to the classifier.
const FeatureCount = 5

// Candle represents one OHLCV bar of a fixed-interval series.
// Timestamps are strictly increasing within a series.
type Candle struct {
	TimestampMs int64   `json:"timestamp"` // bar open time, Unix ms
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
}

// Features returns the candle as an ordered (open, high, low, close, volume) vector.
func (c Candle) Features() [FeatureCount]float64 {
	return [FeatureCount]float64{c.Open, c.High, c.Low, c.Close, c.Volume}
}
