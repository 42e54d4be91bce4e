package domain

// FeatureWindow is one classifier example: lookback rows of candle features
// ending right before the labeled candle.
type FeatureWindow struct {
	Features [][FeatureCount]float64 `json:"features"`
	Label    ActionLabel             `json:"label"`
}

// NormalizationParams holds the per-feature scaling fitted at dataset build time.
// The same params must be applied to training and inference windows of an instrument.
type NormalizationParams struct {
	Means [FeatureCount]float64 `json:"means"`
	Stds  [FeatureCount]float64 `json:"stds"`
}
