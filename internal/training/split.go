// Package training fits a classifier on a prepared dataset and evaluates it
// on a held-out split.
package training

import (
	"math"
	"math/rand"
	"sort"

	"copytrader-lab/internal/domain"
)

// Split holds dataset indices of the train and test partitions, each ascending.
type Split struct {
	Train []int
	Test  []int
}

// StratifiedSplit partitions sample indices so each label keeps roughly its
// share in the test set. Per label, round(count*testFraction) samples go to
// test, but at least one sample of every label stays in train; labels with a
// single sample are train-only. The same seed always gives the same split.
func StratifiedSplit(labels []domain.ActionLabel, testFraction float64, seed int64) Split {
	byLabel := make(map[domain.ActionLabel][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}

	order := make([]domain.ActionLabel, 0, len(byLabel))
	for l := range byLabel {
		order = append(order, l)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	rng := rand.New(rand.NewSource(seed))
	var split Split

	for _, l := range order {
		idx := byLabel[l]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(math.Round(float64(len(idx)) * testFraction))
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		if nTest < 0 {
			nTest = 0
		}

		split.Test = append(split.Test, idx[:nTest]...)
		split.Train = append(split.Train, idx[nTest:]...)
	}

	sort.Ints(split.Train)
	sort.Ints(split.Test)
	return split
}

// ClassWeights returns balanced loss weights n / (k * count_c) over the given
// labels, where n is the sample count and k the number of distinct labels.
func ClassWeights(labels []domain.ActionLabel) map[domain.ActionLabel]float64 {
	counts := make(map[domain.ActionLabel]int)
	for _, l := range labels {
		counts[l]++
	}

	weights := make(map[domain.ActionLabel]float64, len(counts))
	n, k := float64(len(labels)), float64(len(counts))
	for l, c := range counts {
		weights[l] = n / (k * float64(c))
	}
	return weights
}
