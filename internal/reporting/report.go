package reporting

import (
	"time"

	"copytrader-lab/internal/domain"
)

// Report describes the persisted datasets and models of a run configuration.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Timeframe   string

	// One row per configured instrument, in configuration order.
	Datasets []DatasetRow
	Models   []ModelRow

	// Instruments without a dataset or model.
	MissingDatasets []string
	MissingModels   []string
}

// DatasetRow summarizes one prepared dataset.
type DatasetRow struct {
	Instrument  string
	DatasetID   string
	Lookback    int
	Windows     int
	LabelCounts map[domain.ActionLabel]int
	CreatedAt   time.Time
}

// TradeShare returns the fraction of windows labeled with any action other than no_trade.
func (r DatasetRow) TradeShare() float64 {
	if r.Windows == 0 {
		return 0
	}
	return float64(r.Windows-r.LabelCounts[domain.ActionNoTrade]) / float64(r.Windows)
}

// ModelRow summarizes one trained model.
type ModelRow struct {
	Instrument string
	Kind       string
	DatasetID  string
	Classes    []domain.ActionLabel
	TrainedAt  time.Time
	// Stale marks a model trained on a dataset that has since been replaced.
	Stale bool
}
