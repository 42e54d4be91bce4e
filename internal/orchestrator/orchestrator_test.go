package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"copytrader-lab/internal/classifier/stub"
	"copytrader-lab/internal/config"
	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/observability"
	"copytrader-lab/internal/reporting"
	"copytrader-lab/internal/storage"
	"copytrader-lab/internal/storage/memory"
	"copytrader-lab/internal/verification"
)

const baseMs = int64(1704067200000) // 2024-01-01 00:00:00 UTC

// fakeCandles serves fixed series; unknown instruments are missing.
type fakeCandles map[string][]domain.Candle

func (f fakeCandles) Candles(_ context.Context, instrument, _ string) ([]domain.Candle, error) {
	c, ok := f[instrument]
	if !ok {
		return nil, fmt.Errorf("candles %s: %w", instrument, domain.ErrMissingInput)
	}
	return c, nil
}

type fakeTrades map[string][]domain.TradeEvent

func (f fakeTrades) Trades(_ context.Context, instrument string) ([]domain.TradeEvent, error) {
	return f[instrument], nil
}

func minuteCandles(n int) []domain.Candle {
	candles := make([]domain.Candle, n)
	for i := range candles {
		p := 10 + float64(i%7)
		candles[i] = domain.Candle{
			TimestampMs: baseMs + int64(i)*60_000,
			Open:        p,
			High:        p + 1,
			Low:         p - 1,
			Close:       p + 0.5,
			Volume:      100 + float64(i),
		}
	}
	return candles
}

func tradeAt(minute int, dir string, pnl float64) domain.TradeEvent {
	return domain.TradeEvent{
		TimeMs:    float64(baseMs + int64(minute)*60_000 + 1_000),
		Direction: dir,
		Price:     10,
		Size:      1,
		ClosedPnl: pnl,
	}
}

type fixture struct {
	orch        *Orchestrator
	cfg         *config.Config
	datasets    *memory.DatasetStore
	models      *memory.ModelStore
	predictions *memory.PredictionStore
	clf         *stub.Classifier
}

// newFixture wires three instruments: OK has data, GONE has no candles and
// BAD has unsorted trades.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Data.Timeframe = "1m"
	cfg.Dataset.Lookback = 5
	cfg.Pipeline.Instruments = []string{"OK", "GONE", "BAD"}
	cfg.Pipeline.Workers = 2
	cfg.Output.Dir = t.TempDir()

	candles := fakeCandles{
		"OK":  minuteCandles(40),
		"BAD": minuteCandles(40),
	}
	trades := fakeTrades{
		"OK": {
			tradeAt(6, "Open Long", 0),
			tradeAt(8, "Open Long", 0),
			tradeAt(12, "Close Long", 3.5),
			tradeAt(20, "Open Short", 0),
			tradeAt(25, "Close Short", -1),
			tradeAt(30, "Buy", 0),
		},
		"BAD": {
			tradeAt(12, "Open Long", 0),
			tradeAt(6, "Close Long", 1),
		},
	}

	model := stub.NewModel([]float64{0.1, 0.6, 0.1, 0.1, 0.1})
	clf := &stub.Classifier{Model: model}

	f := &fixture{
		cfg:         cfg,
		datasets:    memory.NewDatasetStore(),
		models:      memory.NewModelStore(),
		predictions: memory.NewPredictionStore(),
		clf:         clf,
	}
	f.orch = New(Options{
		Config:      cfg,
		Candles:     candles,
		Trades:      trades,
		Datasets:    f.datasets,
		Models:      f.models,
		Predictions: f.predictions,
		Classifier:  clf,
		Codec:       stub.Codec{Model: model},
		Logger:      zerolog.Nop(),
		Metrics:     observability.NewMetricsWith(prometheus.NewRegistry(), "test"),
		Clock:       func() time.Time { return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) },
		RunID:       func() string { return "run-1" },
	})
	return f
}

func statuses(r *RunResult) map[string]Status {
	out := make(map[string]Status)
	for _, ir := range r.Instruments {
		out[ir.Instrument] = ir.Status
	}
	return out
}

func TestPrepare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.orch.Prepare(ctx)
	require.NoError(t, err)

	require.Len(t, res.Instruments, 3)
	assert.Equal(t, []string{"OK", "GONE", "BAD"},
		[]string{res.Instruments[0].Instrument, res.Instruments[1].Instrument, res.Instruments[2].Instrument})
	assert.Equal(t, map[string]Status{"OK": StatusOK, "GONE": StatusSkipped, "BAD": StatusFailed}, statuses(res))

	bad := res.Instruments[2]
	assert.True(t, errors.Is(bad.Err, domain.ErrUnsortedSeries), "got %v", bad.Err)

	ok := res.Instruments[0]
	assert.Equal(t, 40, ok.Candles)
	assert.Equal(t, 6, ok.Trades)
	assert.Equal(t, 35, ok.Windows)
	assert.Equal(t, 2, ok.Labels[domain.ActionClose])
	assert.Equal(t, 1, ok.Labels[domain.ActionAdd])
	assert.Equal(t, 2, ok.Labels[domain.ActionOpenLong])
	assert.Equal(t, 1, ok.Labels[domain.ActionOpenShort])
	assert.NotEmpty(t, ok.DatasetID)

	ds, err := f.datasets.Get(ctx, "OK", "1m")
	require.NoError(t, err)
	assert.Equal(t, ok.DatasetID, ds.DatasetID)
	assert.Equal(t, 5, ds.Lookback)
	assert.Len(t, ds.Windows, 35)

	total := 0
	for _, n := range ds.LabelCounts {
		total += n
	}
	assert.Equal(t, 35, total)

	_, err = f.datasets.Get(ctx, "BAD", "1m")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestPrepare_NoTradesIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.cfg.Pipeline.Instruments = []string{"QUIET"}
	f.orch.candles = fakeCandles{"QUIET": minuteCandles(20)}

	res, err := f.orch.Prepare(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, res.Instruments[0].Status)
	assert.True(t, errors.Is(res.Instruments[0].Err, domain.ErrInsufficientData))
}

func TestPrepare_IsDeterministic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.orch.Prepare(ctx)
	require.NoError(t, err)
	second, err := f.orch.Prepare(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Instruments[0].DatasetID, second.Instruments[0].DatasetID)
	assert.Equal(t, first.Instruments[0].Labels, second.Instruments[0].Labels)
}

func TestTrain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Prepare(ctx)
	require.NoError(t, err)

	res, err := f.orch.Train(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]Status{"OK": StatusOK, "GONE": StatusSkipped, "BAD": StatusSkipped}, statuses(res))

	ok := res.Instruments[0]
	require.NotNil(t, ok.Performance)
	assert.Equal(t, 35, ok.Performance.TrainSamples+ok.Performance.TestSamples)
	assert.Equal(t, ok.Performance.TrainSamples, f.clf.TrainedOn)
	assert.NotEmpty(t, ok.ModelID)

	artifact, err := f.models.Get(ctx, "OK")
	require.NoError(t, err)
	assert.Equal(t, "stub", artifact.Kind)
	assert.Equal(t, 5, artifact.Lookback)

	ds, err := f.datasets.Get(ctx, "OK", "1m")
	require.NoError(t, err)
	assert.Equal(t, ds.Params, artifact.Params)
	assert.Equal(t, ds.DatasetID, artifact.DatasetID)

	report, err := reporting.ReadPerformance(filepath.Join(f.cfg.Output.Dir, reporting.PerformanceFileName))
	require.NoError(t, err)
	require.Contains(t, report, "OK")
	assert.NotContains(t, report, "GONE")
	assert.Equal(t, ok.ModelID, report["OK"].ModelID)
}

func TestPredict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	results, err := f.orch.RunAll(ctx)
	require.NoError(t, err)
	require.Len(t, results, 3)

	res := results[2]
	assert.Equal(t, StagePredict, res.Stage)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, map[string]Status{"OK": StatusOK, "GONE": StatusSkipped, "BAD": StatusSkipped}, statuses(res))

	ok := res.Instruments[0]
	assert.Equal(t, 35, ok.Decode.Windows)
	assert.Equal(t, 35, ok.Decode.Emitted)
	assert.Equal(t, 35, ok.Distribution[domain.ActionOpenLong])
	assert.InDelta(t, 0.6, ok.Confidence.Mean, 1e-9)

	data, err := os.ReadFile(ok.OutputPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 36)
	assert.Equal(t, reporting.PredictionsHeader, lines[0])
	assert.Equal(t, "1704067500000,2024-01-01T00:05:00Z,open_long,long,15.5000,0.6000", lines[1])

	stored, err := f.predictions.GetByRun(ctx, "run-1", "OK")
	require.NoError(t, err)
	assert.Len(t, stored, 35)
	assert.Equal(t, 5, stored[0].CandleIndex)
}

func TestPredict_ShapeMismatchFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Prepare(ctx)
	require.NoError(t, err)
	_, err = f.orch.Train(ctx)
	require.NoError(t, err)

	// Three-class model whose vectors carry five entries.
	f.clf.Model.Labels = []domain.ActionLabel{domain.ActionNoTrade, domain.ActionOpenLong, domain.ActionClose}

	res, err := f.orch.Predict(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Instruments[0].Status)
	assert.True(t, errors.Is(res.Instruments[0].Err, domain.ErrShapeMismatch))

	_, err = os.Stat(filepath.Join(f.cfg.Output.Dir, reporting.PredictionsFileName("OK")))
	assert.True(t, os.IsNotExist(err))
}

func TestPredict_NoTradeWritesHeaderOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Prepare(ctx)
	require.NoError(t, err)
	_, err = f.orch.Train(ctx)
	require.NoError(t, err)

	f.clf.Model.Probabilities = [][]float64{{0.9, 0.025, 0.025, 0.025, 0.025}}

	res, err := f.orch.Predict(ctx)
	require.NoError(t, err)

	ok := res.Instruments[0]
	assert.Equal(t, StatusOK, ok.Status)
	assert.Equal(t, 35, ok.Decode.NoTrade)

	data, err := os.ReadFile(ok.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, reporting.PredictionsHeader+"\n", string(data))

	stored, err := f.predictions.GetByRun(ctx, "run-1", "OK")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.orch.Prepare(ctx)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Status
	}{
		{nil, StatusOK},
		{fmt.Errorf("x: %w", domain.ErrMissingInput), StatusSkipped},
		{fmt.Errorf("x: %w", domain.ErrInsufficientData), StatusSkipped},
		{fmt.Errorf("x: %w", domain.ErrMalformedTrade), StatusFailed},
		{fmt.Errorf("x: %w", domain.ErrShapeMismatch), StatusFailed},
		{errors.New("boom"), StatusFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.err), "%v", tt.err)
	}
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Prepare(ctx)
	require.NoError(t, err)

	res, err := f.orch.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]Status{"OK": StatusOK, "GONE": StatusSkipped, "BAD": StatusSkipped}, statuses(res))
	assert.Empty(t, res.Instruments[0].Divergences)

	// Tamper with the stored dataset.
	ds, err := f.datasets.Get(ctx, "OK", "1m")
	require.NoError(t, err)
	ds.Windows[0].Label = domain.ActionAdd
	require.NoError(t, f.datasets.Save(ctx, ds))

	res, err = f.orch.Verify(ctx)
	require.NoError(t, err)
	ok := res.Instruments[0]
	assert.Equal(t, StatusFailed, ok.Status)
	assert.True(t, errors.Is(ok.Err, verification.ErrDivergence), "got %v", ok.Err)
	require.NotEmpty(t, ok.Divergences)
	assert.Equal(t, "Windows[0].Label", ok.Divergences[0].Field)
}

func TestPredict_CorruptModelDoesNotStopSiblings(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Data.Timeframe = "1m"
	cfg.Dataset.Lookback = 5
	cfg.Pipeline.Instruments = []string{"CORRUPT", "GOOD"}
	cfg.Pipeline.Workers = 1
	cfg.Output.Dir = t.TempDir()

	trades := []domain.TradeEvent{
		tradeAt(6, "Open Long", 0),
		tradeAt(12, "Close Long", 2),
		tradeAt(20, "Open Short", 0),
		tradeAt(25, "Close Short", 1),
	}
	models := memory.NewModelStore()
	orch := New(Options{
		Config:   cfg,
		Candles:  fakeCandles{"CORRUPT": minuteCandles(40), "GOOD": minuteCandles(40)},
		Trades:   fakeTrades{"CORRUPT": trades, "GOOD": trades},
		Datasets: memory.NewDatasetStore(),
		Models:   models,
		Logger:   zerolog.Nop(),
		Metrics:  observability.NewMetricsWith(prometheus.NewRegistry(), "test"),
	})

	_, err := orch.Prepare(ctx)
	require.NoError(t, err)
	_, err = orch.Train(ctx)
	require.NoError(t, err)

	artifact, err := models.Get(ctx, "CORRUPT")
	require.NoError(t, err)
	artifact.Payload = []byte(`{"lookback":5,"labels":["no_trade"],"centroids":[[0]],"weights":[1]}`)
	require.NoError(t, models.Save(ctx, artifact))

	res, err := orch.Predict(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]Status{"CORRUPT": StatusFailed, "GOOD": StatusOK}, statuses(res))
	assert.True(t, errors.Is(res.Instruments[0].Err, domain.ErrShapeMismatch), "got %v", res.Instruments[0].Err)
	assert.NotEmpty(t, res.Instruments[1].OutputPath)
}

func TestRun_PanicFailsOnlyThatInstrument(t *testing.T) {
	f := newFixture(t)

	res, err := f.orch.run(context.Background(), StagePrepare, "", func(_ context.Context, ir *InstrumentResult) error {
		if ir.Instrument == "GONE" {
			var centroid []float64
			_ = centroid[3]
		}
		return nil
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]Status{"OK": StatusOK, "GONE": StatusFailed, "BAD": StatusOK}, statuses(res))
	assert.True(t, errors.Is(res.Instruments[1].Err, ErrPanic), "got %v", res.Instruments[1].Err)
	assert.Contains(t, res.Instruments[1].Err.Error(), "index out of range")
}
