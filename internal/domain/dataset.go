package domain

import "time"

// Dataset is the persisted training artifact of one instrument.
// Windows hold normalized features; Params are the exact values used to normalize them.
type Dataset struct {
	DatasetID   string              `json:"dataset_id"`
	Instrument  string              `json:"instrument"`
	Timeframe   string              `json:"timeframe"`
	Lookback    int                 `json:"lookback"`
	Windows     []FeatureWindow     `json:"windows"`
	Params      NormalizationParams `json:"params"`
	LabelCounts map[ActionLabel]int `json:"label_counts"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Inputs returns the window features in dataset order.
func (d *Dataset) Inputs() [][][FeatureCount]float64 {
	out := make([][][FeatureCount]float64, len(d.Windows))
	for i, w := range d.Windows {
		out[i] = w.Features
	}
	return out
}

// Labels returns the window labels in dataset order.
func (d *Dataset) Labels() []ActionLabel {
	out := make([]ActionLabel, len(d.Windows))
	for i, w := range d.Windows {
		out[i] = w.Label
	}
	return out
}
