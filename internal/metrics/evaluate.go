// Package metrics scores classifier output against known labels and
// summarizes decoded predictions.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"copytrader-lab/internal/classifier"
	"copytrader-lab/internal/decoding"
	"copytrader-lab/internal/domain"
)

// probEpsilon clips probabilities before taking the log in the loss.
const probEpsilon = 1e-7

// ClassMetrics holds one-vs-rest scores of a single label.
type ClassMetrics struct {
	Label     domain.ActionLabel `json:"label"`
	Support   int                `json:"support"` // true occurrences
	Predicted int                `json:"predicted"`
	Precision float64            `json:"precision"`
	Recall    float64            `json:"recall"`
	F1        float64            `json:"f1"`
}

// Evaluation summarizes classifier performance on one split.
type Evaluation struct {
	Samples  int     `json:"samples"`
	Accuracy float64 `json:"accuracy"`
	Loss     float64 `json:"loss"` // mean categorical cross-entropy

	// Labels indexes both axes of Confusion: Confusion[true][predicted].
	Labels    []domain.ActionLabel `json:"labels"`
	Confusion [][]int              `json:"confusion"`
	PerClass  []ClassMetrics       `json:"per_class"`
}

// Evaluate scores out against truth. out must hold one vector per truth label.
func Evaluate(out classifier.Output, truth []domain.ActionLabel) (Evaluation, error) {
	if err := decoding.CheckShape(out, len(truth)); err != nil {
		return Evaluation{}, err
	}

	ev := Evaluation{Samples: len(truth)}
	if len(truth) == 0 {
		return ev, nil
	}

	predicted := make([]domain.ActionLabel, len(truth))
	correct := 0
	lossSum := 0.0

	for i, probs := range out.Probabilities {
		k, _ := decoding.ArgMax(probs)
		label, ok := out.LabelAt(k)
		if !ok {
			return Evaluation{}, fmt.Errorf("sample %d: arg-max index %d has no class: %w", i, k, domain.ErrShapeMismatch)
		}
		predicted[i] = label
		if label == truth[i] {
			correct++
		}
		lossSum -= math.Log(trueClassProb(out, probs, truth[i]))
	}

	ev.Accuracy = float64(correct) / float64(len(truth))
	ev.Loss = lossSum / float64(len(truth))
	ev.Labels = labelSet(truth, predicted)
	ev.Confusion = confusion(ev.Labels, truth, predicted)
	ev.PerClass = perClass(ev.Labels, ev.Confusion)

	return ev, nil
}

// trueClassProb returns the clipped probability assigned to the true label.
// A label the model cannot emit gets the floor probability.
func trueClassProb(out classifier.Output, probs []float64, truth domain.ActionLabel) float64 {
	for k := range probs {
		if label, ok := out.LabelAt(k); ok && label == truth {
			return math.Min(math.Max(probs[k], probEpsilon), 1-probEpsilon)
		}
	}
	return probEpsilon
}

func labelSet(sets ...[]domain.ActionLabel) []domain.ActionLabel {
	seen := make(map[domain.ActionLabel]struct{})
	var labels []domain.ActionLabel
	for _, set := range sets {
		for _, l := range set {
			if _, ok := seen[l]; !ok {
				seen[l] = struct{}{}
				labels = append(labels, l)
			}
		}
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

func confusion(labels, truth, predicted []domain.ActionLabel) [][]int {
	index := make(map[domain.ActionLabel]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	m := make([][]int, len(labels))
	for i := range m {
		m[i] = make([]int, len(labels))
	}
	for i := range truth {
		m[index[truth[i]]][index[predicted[i]]]++
	}
	return m
}

func perClass(labels []domain.ActionLabel, m [][]int) []ClassMetrics {
	out := make([]ClassMetrics, len(labels))
	for c, label := range labels {
		tp := m[c][c]
		support, predicted := 0, 0
		for k := range labels {
			support += m[c][k]
			predicted += m[k][c]
		}

		cm := ClassMetrics{
			Label:     label,
			Support:   support,
			Predicted: predicted,
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, support),
		}
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		out[c] = cm
	}
	return out
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
