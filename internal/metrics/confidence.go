package metrics

import (
	"math"
	"sort"

	"copytrader-lab/internal/domain"
)

// ConfidenceSummary describes the confidence distribution of decoded predictions.
type ConfidenceSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	P10    float64 `json:"p10"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
}

// SummarizeConfidence computes distribution statistics of trade confidences.
func SummarizeConfidence(trades []domain.PredictedTrade) ConfidenceSummary {
	n := len(trades)
	if n == 0 {
		return ConfidenceSummary{}
	}

	values := make([]float64, n)
	for i, t := range trades {
		values[i] = t.Confidence
	}
	sort.Float64s(values)

	mean := computeMean(values)
	return ConfidenceSummary{
		Count:  n,
		Mean:   mean,
		Stddev: computeStddev(values, mean),
		Min:    values[0],
		P10:    computePercentile(values, 0.10),
		Median: computePercentile(values, 0.50),
		P90:    computePercentile(values, 0.90),
		Max:    values[n-1],
	}
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC; p is a fraction (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
