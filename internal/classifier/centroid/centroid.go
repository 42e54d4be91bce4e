// Package centroid is the in-repo baseline classifier: a class-weighted
// nearest-centroid model with softmax over negative distances.
//
// It exists so the prepare/train/predict tools run end to end without an
// external training service. It is not a trading model.
package centroid

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"copytrader-lab/internal/classifier"
	"copytrader-lab/internal/domain"
)

// Classifier trains centroid models.
type Classifier struct{}

// New creates a centroid classifier.
func New() *Classifier {
	return &Classifier{}
}

// Train computes one mean window per label seen in y. Labels are ordered by
// class index, so output vectors only cover classes present in training.
func (c *Classifier) Train(ctx context.Context, x classifier.Input, y []domain.ActionLabel, weights map[domain.ActionLabel]float64) (classifier.Model, error) {
	if len(x) == 0 {
		return nil, classifier.ErrNoExamples
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%d windows for %d labels: %w", len(x), len(y), domain.ErrShapeMismatch)
	}

	lookback := len(x[0])
	dims := lookback * domain.FeatureCount

	sums := make(map[domain.ActionLabel][]float64)
	counts := make(map[domain.ActionLabel]int)

	for i, window := range x {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(window) != lookback {
			return nil, fmt.Errorf("window %d has %d rows, want %d: %w", i, len(window), lookback, domain.ErrShapeMismatch)
		}
		sum, ok := sums[y[i]]
		if !ok {
			sum = make([]float64, dims)
			sums[y[i]] = sum
		}
		for r, row := range window {
			for f, v := range row {
				sum[r*domain.FeatureCount+f] += v
			}
		}
		counts[y[i]]++
	}

	labels := make([]domain.ActionLabel, 0, len(sums))
	for l := range sums {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	m := &Model{
		Lookback:  lookback,
		Labels:    labels,
		Centroids: make([][]float64, len(labels)),
		Weights:   make([]float64, len(labels)),
	}
	for k, l := range labels {
		centroid := sums[l]
		n := float64(counts[l])
		for d := range centroid {
			centroid[d] /= n
		}
		m.Centroids[k] = centroid

		w, ok := weights[l]
		if !ok || w <= 0 {
			w = 1
		}
		m.Weights[k] = w
	}

	return m, nil
}

// Model is a trained centroid model. It marshals to JSON as-is.
type Model struct {
	Lookback  int                  `json:"lookback"`
	Labels    []domain.ActionLabel `json:"labels"`
	Centroids [][]float64          `json:"centroids"`
	Weights   []float64            `json:"weights"`
}

// Classes returns the labels seen in training, in output order.
func (m *Model) Classes() []domain.ActionLabel {
	return m.Labels
}

// Predict scores each window as ln(weight) minus its mean squared distance
// to the class centroid and returns the softmax of the scores.
func (m *Model) Predict(ctx context.Context, x classifier.Input) (classifier.Output, error) {
	out := classifier.Output{
		Classes:       m.Labels,
		Probabilities: make([][]float64, len(x)),
	}

	dims := float64(m.Lookback * domain.FeatureCount)
	scores := make([]float64, len(m.Labels))

	for i, window := range x {
		if err := ctx.Err(); err != nil {
			return classifier.Output{}, err
		}
		if len(window) != m.Lookback {
			return classifier.Output{}, fmt.Errorf("window %d has %d rows, want %d: %w", i, len(window), m.Lookback, domain.ErrShapeMismatch)
		}

		for k, centroid := range m.Centroids {
			var dist float64
			for r, row := range window {
				for f, v := range row {
					d := v - centroid[r*domain.FeatureCount+f]
					dist += d * d
				}
			}
			scores[k] = math.Log(m.Weights[k]) - dist/dims
		}
		out.Probabilities[i] = softmax(scores)
	}

	return out, nil
}

func softmax(scores []float64) []float64 {
	max := math.Inf(-1)
	for _, s := range scores {
		if s > max {
			max = s
		}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Marshal encodes a model for persistence.
func Marshal(m *Model) ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal decodes a persisted model and checks its shape.
func Unmarshal(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode centroid model: %w", err)
	}
	if len(m.Labels) == 0 || len(m.Centroids) != len(m.Labels) || len(m.Weights) != len(m.Labels) {
		return nil, fmt.Errorf("centroid model with %d labels, %d centroids, %d weights: %w",
			len(m.Labels), len(m.Centroids), len(m.Weights), domain.ErrShapeMismatch)
	}
	if m.Lookback <= 0 {
		return nil, fmt.Errorf("centroid model lookback %d: %w", m.Lookback, domain.ErrShapeMismatch)
	}
	dims := m.Lookback * domain.FeatureCount
	for k, c := range m.Centroids {
		if len(c) != dims {
			return nil, fmt.Errorf("centroid %d has %d values, want %d: %w", k, len(c), dims, domain.ErrShapeMismatch)
		}
	}
	return &m, nil
}

// Kind is the artifact kind of centroid models.
const Kind = "centroid"

// Codec persists centroid models as JSON.
type Codec struct{}

// Kind implements classifier.Codec.
func (Codec) Kind() string { return Kind }

// Encode implements classifier.Codec.
func (Codec) Encode(m classifier.Model) ([]byte, error) {
	cm, ok := m.(*Model)
	if !ok {
		return nil, fmt.Errorf("encode %T as %s: %w", m, Kind, classifier.ErrUnsupportedModel)
	}
	return Marshal(cm)
}

// Decode implements classifier.Codec.
func (Codec) Decode(payload []byte) (classifier.Model, error) {
	return Unmarshal(payload)
}

var (
	_ classifier.Classifier = (*Classifier)(nil)
	_ classifier.Model      = (*Model)(nil)
	_ classifier.Codec      = Codec{}
)
