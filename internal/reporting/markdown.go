package reporting

import (
	"fmt"
	"strings"
	"time"

	"copytrader-lab/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Dataset Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Timeframe: %s | Datasets: %d | Models: %d\n\n", r.Timeframe, len(r.Datasets), len(r.Models)))

	// Label distribution
	sb.WriteString("## Datasets\n\n")
	if len(r.Datasets) == 0 {
		sb.WriteString("No datasets.\n\n")
	} else {
		sb.WriteString("| Instrument | Windows | Lookback |")
		for _, l := range domain.AllActionLabels() {
			sb.WriteString(" " + l.String() + " |")
		}
		sb.WriteString(" Trade Share | Dataset ID |\n")
		sb.WriteString("|------------|---------|----------|")
		for range domain.AllActionLabels() {
			sb.WriteString("------|")
		}
		sb.WriteString("-------------|------------|\n")

		for _, d := range r.Datasets {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d |", d.Instrument, d.Windows, d.Lookback))
			for _, l := range domain.AllActionLabels() {
				sb.WriteString(fmt.Sprintf(" %d |", d.LabelCounts[l]))
			}
			sb.WriteString(fmt.Sprintf(" %.2f%% | %s |\n", d.TradeShare()*100, d.DatasetID))
		}
		sb.WriteString("\n")
	}

	// Models
	sb.WriteString("## Models\n\n")
	if len(r.Models) == 0 {
		sb.WriteString("No models.\n\n")
	} else {
		sb.WriteString("| Instrument | Kind | Classes | Trained | Dataset |\n")
		sb.WriteString("|------------|------|---------|---------|---------|\n")
		for _, m := range r.Models {
			classes := make([]string, len(m.Classes))
			for i, c := range m.Classes {
				classes[i] = c.String()
			}
			dataset := m.DatasetID
			if m.Stale {
				dataset += " (stale)"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				m.Instrument, m.Kind, strings.Join(classes, ", "), m.TrainedAt.Format(time.RFC3339), dataset))
		}
		sb.WriteString("\n")
	}

	if len(r.MissingDatasets) > 0 || len(r.MissingModels) > 0 {
		sb.WriteString("## Missing\n\n")
		if len(r.MissingDatasets) > 0 {
			sb.WriteString(fmt.Sprintf("- Datasets: %s\n", strings.Join(r.MissingDatasets, ", ")))
		}
		if len(r.MissingModels) > 0 {
			sb.WriteString(fmt.Sprintf("- Models: %s\n", strings.Join(r.MissingModels, ", ")))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
