package app

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/orchestrator"
)

func TestPrintSummary(t *testing.T) {
	res := &orchestrator.RunResult{
		Stage: orchestrator.StagePrepare,
		Instruments: []orchestrator.InstrumentResult{
			{
				Instrument: "ZEC",
				Status:     orchestrator.StatusOK,
				Candles:    100,
				Trades:     4,
				Windows:    80,
				Labels:     map[domain.ActionLabel]int{domain.ActionClose: 2, domain.ActionNoTrade: 78},
				DatasetID:  "abc",
			},
			{Instrument: "MET", Status: orchestrator.StatusSkipped, Err: domain.ErrMissingInput},
			{Instrument: "STRK", Status: orchestrator.StatusFailed, Err: errors.New("bad row")},
		},
	}

	var buf bytes.Buffer
	PrintSummary(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "=== prepare ===")
	assert.Contains(t, out, "labels={no_trade:78 close:2}")
	assert.Contains(t, out, "skipped  missing input")
	assert.Contains(t, out, "failed   bad row")
	assert.Contains(t, out, "ok: 1, skipped: 1, failed: 1")
}
