package reporting

import (
	"fmt"
	"strings"

	"copytrader-lab/internal/domain"
)

// RenderDistributionCSV renders per-instrument label counts as CSV string.
func RenderDistributionCSV(rows []DatasetRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("instrument,windows")
	for _, l := range domain.AllActionLabels() {
		sb.WriteString("," + l.String())
	}
	sb.WriteString(",trade_share\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d", r.Instrument, r.Windows))
		for _, l := range domain.AllActionLabels() {
			sb.WriteString(fmt.Sprintf(",%d", r.LabelCounts[l]))
		}
		sb.WriteString(fmt.Sprintf(",%.6f\n", r.TradeShare()))
	}

	return sb.String()
}
