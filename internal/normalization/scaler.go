// Package normalization fits and applies per-feature z-score scaling to
// feature windows. Params fitted at dataset build time are persisted and
// reused unchanged at inference time.
package normalization

import (
	"fmt"
	"math"

	"copytrader-lab/internal/domain"
)

// Fit flattens every row of every window into one observation set and
// computes per-feature mean and population standard deviation.
// A zero standard deviation is replaced by 1.
func Fit(windows []domain.FeatureWindow) (domain.NormalizationParams, error) {
	var params domain.NormalizationParams

	var count float64
	for _, w := range windows {
		for _, row := range w.Features {
			for f := 0; f < domain.FeatureCount; f++ {
				params.Means[f] += row[f]
			}
			count++
		}
	}
	if count == 0 {
		return params, fmt.Errorf("fit on empty window set: %w", domain.ErrInsufficientData)
	}

	for f := 0; f < domain.FeatureCount; f++ {
		params.Means[f] /= count
	}

	var sumSq [domain.FeatureCount]float64
	for _, w := range windows {
		for _, row := range w.Features {
			for f := 0; f < domain.FeatureCount; f++ {
				d := row[f] - params.Means[f]
				sumSq[f] += d * d
			}
		}
	}

	for f := 0; f < domain.FeatureCount; f++ {
		std := math.Sqrt(sumSq[f] / count)
		if std == 0 {
			std = 1
		}
		params.Stds[f] = std
	}

	return params, nil
}

// Transform returns new windows with (x - mean) / std applied feature-wise.
// Shape, order and labels are preserved; the input is not modified.
func Transform(windows []domain.FeatureWindow, params domain.NormalizationParams) []domain.FeatureWindow {
	out := make([]domain.FeatureWindow, len(windows))
	for i, w := range windows {
		features := make([][domain.FeatureCount]float64, len(w.Features))
		for r, row := range w.Features {
			for f := 0; f < domain.FeatureCount; f++ {
				features[r][f] = (row[f] - params.Means[f]) / params.Stds[f]
			}
		}
		out[i] = domain.FeatureWindow{Features: features, Label: w.Label}
	}
	return out
}

// FitTransform fits params on windows and returns the transformed windows with them.
func FitTransform(windows []domain.FeatureWindow) ([]domain.FeatureWindow, domain.NormalizationParams, error) {
	params, err := Fit(windows)
	if err != nil {
		return nil, params, err
	}
	return Transform(windows, params), params, nil
}
