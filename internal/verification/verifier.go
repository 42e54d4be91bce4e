// Package verification checks that a stored dataset matches a rebuild from
// the raw candles and trades. Labeling, windowing and normalization are
// deterministic, so any divergence means the inputs or the code changed
// since the dataset was prepared.
package verification

import (
	"errors"
	"fmt"
	"math"

	"copytrader-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// maxWindowDivergences caps the per-window entries of one comparison.
const maxWindowDivergences = 10

// ErrDivergence is returned when a stored dataset differs from its rebuild.
var ErrDivergence = errors.New("dataset diverges from rebuild")

// FieldDivergence represents a mismatch between stored and rebuilt values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // rebuilt value
}

func (d FieldDivergence) String() string {
	return fmt.Sprintf("%s: stored %v, rebuilt %v", d.Field, d.Expected, d.Actual)
}

// Result contains the verification outcome of one instrument.
type Result struct {
	Instrument  string
	Match       bool
	Divergences []FieldDivergence
}

// Err returns ErrDivergence describing the first divergence, or nil on a match.
func (r Result) Err() error {
	if r.Match {
		return nil
	}
	return fmt.Errorf("%s (%d fields, first %s): %w", r.Instrument, len(r.Divergences), r.Divergences[0], ErrDivergence)
}

// Verify compares stored against rebuilt.
func Verify(stored, rebuilt *domain.Dataset) Result {
	divergences := CompareDatasets(stored, rebuilt)
	return Result{
		Instrument:  stored.Instrument,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}
}

// CompareDatasets compares two datasets and returns divergences.
// Uses FloatTolerance for float64 comparisons. CreatedAt is ignored.
func CompareDatasets(stored, rebuilt *domain.Dataset) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	if stored.DatasetID != rebuilt.DatasetID {
		add("DatasetID", stored.DatasetID, rebuilt.DatasetID)
	}
	if stored.Instrument != rebuilt.Instrument {
		add("Instrument", stored.Instrument, rebuilt.Instrument)
	}
	if stored.Timeframe != rebuilt.Timeframe {
		add("Timeframe", stored.Timeframe, rebuilt.Timeframe)
	}
	if stored.Lookback != rebuilt.Lookback {
		add("Lookback", stored.Lookback, rebuilt.Lookback)
	}

	// Normalization params
	for f := 0; f < domain.FeatureCount; f++ {
		if !floatEquals(stored.Params.Means[f], rebuilt.Params.Means[f]) {
			add(fmt.Sprintf("Params.Means[%d]", f), stored.Params.Means[f], rebuilt.Params.Means[f])
		}
		if !floatEquals(stored.Params.Stds[f], rebuilt.Params.Stds[f]) {
			add(fmt.Sprintf("Params.Stds[%d]", f), stored.Params.Stds[f], rebuilt.Params.Stds[f])
		}
	}

	// Label distribution
	for _, l := range domain.AllActionLabels() {
		if stored.LabelCounts[l] != rebuilt.LabelCounts[l] {
			add("LabelCounts."+l.String(), stored.LabelCounts[l], rebuilt.LabelCounts[l])
		}
	}

	if len(stored.Windows) != len(rebuilt.Windows) {
		add("Windows", len(stored.Windows), len(rebuilt.Windows))
		return divergences
	}

	windowDivergences := 0
	for j := range stored.Windows {
		if windowDivergences >= maxWindowDivergences {
			break
		}
		if d, ok := compareWindow(j, stored.Windows[j], rebuilt.Windows[j]); !ok {
			divergences = append(divergences, d)
			windowDivergences++
		}
	}

	return divergences
}

// compareWindow returns the first divergent field of window j.
func compareWindow(j int, stored, rebuilt domain.FeatureWindow) (FieldDivergence, bool) {
	if stored.Label != rebuilt.Label {
		return FieldDivergence{
			Field:    fmt.Sprintf("Windows[%d].Label", j),
			Expected: stored.Label,
			Actual:   rebuilt.Label,
		}, false
	}
	if len(stored.Features) != len(rebuilt.Features) {
		return FieldDivergence{
			Field:    fmt.Sprintf("Windows[%d].Features", j),
			Expected: len(stored.Features),
			Actual:   len(rebuilt.Features),
		}, false
	}
	for r := range stored.Features {
		for f := 0; f < domain.FeatureCount; f++ {
			if !floatEquals(stored.Features[r][f], rebuilt.Features[r][f]) {
				return FieldDivergence{
					Field:    fmt.Sprintf("Windows[%d].Features[%d][%d]", j, r, f),
					Expected: stored.Features[r][f],
					Actual:   rebuilt.Features[r][f],
				}, false
			}
		}
	}
	return FieldDivergence{}, true
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
