// Package classifier defines the contract of the sequence classifier that
// consumes feature windows and returns per-class probabilities.
package classifier

import (
	"context"
	"errors"

	"copytrader-lab/internal/domain"
)

// Input is a batch of windows, each lookback rows of features.
type Input = [][][domain.FeatureCount]float64

// Output is one probability vector per input window, in input order.
// Probabilities[j][k] belongs to Classes[k]. An empty Classes means the
// vector index is the ActionLabel value itself.
type Output struct {
	Classes       []domain.ActionLabel
	Probabilities [][]float64
}

// Classifier trains a model from labeled windows.
type Classifier interface {
	// Train fits a model. weights maps each label to its loss weight.
	Train(ctx context.Context, x Input, y []domain.ActionLabel, weights map[domain.ActionLabel]float64) (Model, error)
}

// Model is a trained classifier.
type Model interface {
	// Classes returns the labels seen at training time, in output-vector order.
	Classes() []domain.ActionLabel

	// Predict returns one probability vector per window.
	Predict(ctx context.Context, x Input) (Output, error)
}

// Codec persists the models of one classifier implementation.
type Codec interface {
	// Kind names the implementation, stored with the model artifact.
	Kind() string
	Encode(m Model) ([]byte, error)
	Decode(payload []byte) (Model, error)
}

var (
	// ErrNoExamples is returned when training is requested on an empty set.
	ErrNoExamples = errors.New("no training examples")

	// ErrUnsupportedModel is returned when a codec is handed a model or
	// artifact of another implementation.
	ErrUnsupportedModel = errors.New("unsupported model")
)

// LabelAt resolves the label of output-vector position k.
func (o Output) LabelAt(k int) (domain.ActionLabel, bool) {
	if len(o.Classes) == 0 {
		l := domain.ActionLabel(k)
		return l, k >= 0 && l.IsValid()
	}
	if k < 0 || k >= len(o.Classes) {
		return 0, false
	}
	return o.Classes[k], true
}
