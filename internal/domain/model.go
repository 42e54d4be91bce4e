package domain

import "time"

// ModelArtifact is a trained classifier persisted for one instrument together
// with everything needed to prepare inference windows the same way as the
// training set.
type ModelArtifact struct {
	Instrument string              `json:"instrument"`
	DatasetID  string              `json:"dataset_id"`
	Kind       string              `json:"kind"` // classifier implementation, e.g. "centroid"
	Lookback   int                 `json:"lookback"`
	Params     NormalizationParams `json:"params"`
	Classes    []ActionLabel       `json:"classes"`
	Payload    []byte              `json:"payload"` // implementation-specific encoding
	TrainedAt  time.Time           `json:"trained_at"`
}
