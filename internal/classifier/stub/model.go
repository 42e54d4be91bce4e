// Package stub provides a fixed-output classifier for deterministic tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"copytrader-lab/internal/classifier"
	"copytrader-lab/internal/domain"
)

// Model returns preset probability vectors regardless of input.
// When Probabilities is shorter than the input, the last vector repeats.
type Model struct {
	Labels        []domain.ActionLabel
	Probabilities [][]float64

	mu sync.Mutex
	// Calls records the batch sizes passed to Predict.
	Calls []int
}

// NewModel creates a stub model over the full label enumeration.
func NewModel(probs ...[]float64) *Model {
	return &Model{Probabilities: probs}
}

// Classes returns the configured labels or the full enumeration.
func (m *Model) Classes() []domain.ActionLabel {
	if len(m.Labels) > 0 {
		return m.Labels
	}
	return domain.AllActionLabels()
}

// Predict returns the preset vectors.
func (m *Model) Predict(_ context.Context, x classifier.Input) (classifier.Output, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, len(x))
	m.mu.Unlock()

	if len(m.Probabilities) == 0 {
		return classifier.Output{}, fmt.Errorf("stub model has no probabilities")
	}

	out := classifier.Output{
		Classes:       m.Labels,
		Probabilities: make([][]float64, len(x)),
	}
	for i := range x {
		src := m.Probabilities[len(m.Probabilities)-1]
		if i < len(m.Probabilities) {
			src = m.Probabilities[i]
		}
		vec := make([]float64, len(src))
		copy(vec, src)
		out.Probabilities[i] = vec
	}
	return out, nil
}

// Classifier trains by returning its preset model and recording the call.
type Classifier struct {
	Model *Model

	mu        sync.Mutex
	TrainedOn int
	Weights   map[domain.ActionLabel]float64
}

// Train records the inputs and returns the preset model.
func (c *Classifier) Train(_ context.Context, x classifier.Input, y []domain.ActionLabel, weights map[domain.ActionLabel]float64) (classifier.Model, error) {
	if len(x) == 0 {
		return nil, classifier.ErrNoExamples
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%d windows for %d labels: %w", len(x), len(y), domain.ErrShapeMismatch)
	}
	c.mu.Lock()
	c.TrainedOn = len(x)
	c.Weights = weights
	c.mu.Unlock()
	return c.Model, nil
}

// Codec stores a placeholder payload and decodes it back to Model.
type Codec struct {
	Model *Model
}

// Kind implements classifier.Codec.
func (Codec) Kind() string { return "stub" }

// Encode implements classifier.Codec.
func (c Codec) Encode(m classifier.Model) ([]byte, error) {
	if _, ok := m.(*Model); !ok {
		return nil, fmt.Errorf("encode %T as stub: %w", m, classifier.ErrUnsupportedModel)
	}
	return []byte("stub"), nil
}

// Decode implements classifier.Codec.
func (c Codec) Decode(payload []byte) (classifier.Model, error) {
	if string(payload) != "stub" || c.Model == nil {
		return nil, fmt.Errorf("decode stub payload: %w", classifier.ErrUnsupportedModel)
	}
	return c.Model, nil
}

var (
	_ classifier.Model      = (*Model)(nil)
	_ classifier.Classifier = (*Classifier)(nil)
	_ classifier.Codec      = Codec{}
)
