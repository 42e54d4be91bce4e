package app

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/orchestrator"
)

// PrintSummary writes a per-instrument summary of a stage run.
func PrintSummary(w io.Writer, res *orchestrator.RunResult) {
	fmt.Fprintf(w, "=== %s ===\n", res.Stage)
	if res.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", res.RunID)
	}

	for _, ir := range res.Instruments {
		switch ir.Status {
		case orchestrator.StatusOK:
			fmt.Fprintf(w, "  %-8s ok       %s\n", ir.Instrument, details(res.Stage, ir))
		default:
			fmt.Fprintf(w, "  %-8s %-8s %v\n", ir.Instrument, ir.Status, ir.Err)
			for _, d := range ir.Divergences {
				fmt.Fprintf(w, "             %s\n", d)
			}
		}
	}

	fmt.Fprintf(w, "ok: %d, skipped: %d, failed: %d (%s)\n",
		res.Count(orchestrator.StatusOK),
		res.Count(orchestrator.StatusSkipped),
		res.Count(orchestrator.StatusFailed),
		res.Duration)
}

func details(stage orchestrator.Stage, ir orchestrator.InstrumentResult) string {
	switch stage {
	case orchestrator.StagePrepare:
		return fmt.Sprintf("candles=%d trades=%d windows=%d labels={%s} dataset=%s",
			ir.Candles, ir.Trades, ir.Windows, formatCounts(ir.Labels), ir.DatasetID)
	case orchestrator.StageVerify:
		return fmt.Sprintf("windows=%d dataset=%s matches rebuild", ir.Windows, ir.DatasetID)
	case orchestrator.StageTrain:
		p := ir.Performance
		if p == nil {
			return ""
		}
		return fmt.Sprintf("train/test=%d/%d accuracy=%.2f%% loss=%.4f model=%s",
			p.TrainSamples, p.TestSamples, p.TestAccuracy*100, p.TestLoss, ir.ModelID)
	case orchestrator.StagePredict:
		return fmt.Sprintf("windows=%d trades=%d out_of_bounds=%d distribution={%s} confidence=%.4f -> %s",
			ir.Decode.Windows, ir.Decode.Emitted, ir.Decode.OutOfBounds,
			formatCounts(ir.Distribution), ir.Confidence.Mean, ir.OutputPath)
	}
	return ""
}

// formatCounts renders label counts in label order, e.g. "no_trade:3 close:1".
func formatCounts(counts map[domain.ActionLabel]int) string {
	labels := make([]domain.ActionLabel, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = fmt.Sprintf("%s:%d", l, counts[l])
	}
	return strings.Join(parts, " ")
}
