package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"copytrader-lab/internal/classifier"
	"copytrader-lab/internal/decoding"
	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/idhash"
	"copytrader-lab/internal/labeling"
	"copytrader-lab/internal/metrics"
	"copytrader-lab/internal/normalization"
	"copytrader-lab/internal/reporting"
	"copytrader-lab/internal/training"
	"copytrader-lab/internal/verification"
	"copytrader-lab/internal/windowing"
)

// buildDataset labels candles from trades, builds lookback windows and
// normalizes them. It fills the input counts of ir.
func (o *Orchestrator) buildDataset(ctx context.Context, ir *InstrumentResult, interval time.Duration) (*domain.Dataset, error) {
	timeframe := o.cfg.Data.Timeframe
	lookback := o.cfg.Dataset.Lookback

	candles, err := o.candles.Candles(ctx, ir.Instrument, timeframe)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	trades, err := o.trades.Trades(ctx, ir.Instrument)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	ir.Candles, ir.Trades = len(candles), len(trades)

	if len(trades) == 0 {
		return nil, fmt.Errorf("no trades for %s: %w", ir.Instrument, domain.ErrInsufficientData)
	}

	labels, err := labeling.LabelCandles(candles, trades, interval)
	if err != nil {
		return nil, fmt.Errorf("label candles: %w", err)
	}

	windows, err := windowing.Build(candles, labels, lookback)
	if err != nil {
		return nil, fmt.Errorf("build windows: %w", err)
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("%d candles leave no window after lookback %d: %w", len(candles), lookback, domain.ErrInsufficientData)
	}

	normalized, params, err := normalization.FitTransform(windows)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	windowLabels := make([]domain.ActionLabel, len(normalized))
	for i, w := range normalized {
		windowLabels[i] = w.Label
	}

	return &domain.Dataset{
		DatasetID:   idhash.ComputeDatasetID(ir.Instrument, timeframe, lookback, len(normalized), params),
		Instrument:  ir.Instrument,
		Timeframe:   timeframe,
		Lookback:    lookback,
		Windows:     normalized,
		Params:      params,
		LabelCounts: labeling.Distribution(windowLabels),
		CreatedAt:   o.clock(),
	}, nil
}

// prepareInstrument builds and saves the dataset of one instrument.
func (o *Orchestrator) prepareInstrument(ctx context.Context, ir *InstrumentResult, interval time.Duration) error {
	ds, err := o.buildDataset(ctx, ir, interval)
	if err != nil {
		return err
	}
	if err := o.timed("dataset", "save", func() error { return o.datasets.Save(ctx, ds) }); err != nil {
		return fmt.Errorf("save dataset: %w", err)
	}

	ir.Windows = len(ds.Windows)
	ir.Labels = ds.LabelCounts
	ir.DatasetID = ds.DatasetID

	o.metrics.RecordLabels(ir.Candles, ir.Trades, ds.LabelCounts)
	o.metrics.RecordWindows(len(ds.Windows))

	o.log.Info().
		Str("instrument", ir.Instrument).
		Int("candles", ir.Candles).
		Int("trades", ir.Trades).
		Int("windows", len(ds.Windows)).
		Interface("labels", ds.LabelCounts).
		Str("dataset_id", ds.DatasetID).
		Msg("dataset prepared")

	return nil
}

// verifyInstrument rebuilds the dataset of one instrument and compares it
// with the stored one.
func (o *Orchestrator) verifyInstrument(ctx context.Context, ir *InstrumentResult, interval time.Duration) error {
	var stored *domain.Dataset
	err := o.timed("dataset", "get", func() error {
		var err error
		stored, err = o.datasets.Get(ctx, ir.Instrument, o.cfg.Data.Timeframe)
		return err
	})
	if err != nil {
		return missingAsInput("load dataset", err)
	}

	rebuilt, err := o.buildDataset(ctx, ir, interval)
	if err != nil {
		return err
	}

	res := verification.Verify(stored, rebuilt)
	ir.Windows = len(rebuilt.Windows)
	ir.Labels = rebuilt.LabelCounts
	ir.DatasetID = stored.DatasetID
	ir.Divergences = res.Divergences

	return res.Err()
}

// trainInstrument trains and evaluates a model on the saved dataset and
// saves it together with the dataset's normalization params.
func (o *Orchestrator) trainInstrument(ctx context.Context, ir *InstrumentResult) error {
	var ds *domain.Dataset
	err := o.timed("dataset", "get", func() error {
		var err error
		ds, err = o.datasets.Get(ctx, ir.Instrument, o.cfg.Data.Timeframe)
		return err
	})
	if err != nil {
		return missingAsInput("load dataset", err)
	}

	res, err := training.Run(ctx, o.classifier, ds, training.Config{
		TestFraction: o.cfg.Train.TestFraction,
		Seed:         o.cfg.Train.Seed,
	})
	if err != nil {
		return err
	}

	payload, err := o.codec.Encode(res.Model)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	artifact := &domain.ModelArtifact{
		Instrument: ir.Instrument,
		DatasetID:  ds.DatasetID,
		Kind:       o.codec.Kind(),
		Lookback:   ds.Lookback,
		Params:     ds.Params,
		Classes:    res.Model.Classes(),
		Payload:    payload,
		TrainedAt:  o.clock(),
	}
	if err := o.timed("model", "save", func() error { return o.models.Save(ctx, artifact) }); err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	ir.Windows = len(ds.Windows)
	ir.DatasetID = ds.DatasetID
	ir.ModelID = idhash.ComputeModelID(ds.DatasetID, artifact.Kind, payload)
	ir.Performance = &reporting.Performance{
		TrainAccuracy: res.Train.Accuracy,
		TestAccuracy:  res.Test.Accuracy,
		TrainLoss:     res.Train.Loss,
		TestLoss:      res.Test.Loss,
		NumClasses:    len(artifact.Classes),
		TrainSamples:  res.TrainSamples,
		TestSamples:   res.TestSamples,
		ModelPath:     o.modelPath(ir.Instrument),
		DatasetID:     ds.DatasetID,
		ModelID:       ir.ModelID,
		ClassWeights:  res.Weights,
		Test:          res.Test,
	}

	o.metrics.RecordModel(ir.Instrument, "train", res.Train.Accuracy, res.Train.Loss)
	o.metrics.RecordModel(ir.Instrument, "test", res.Test.Accuracy, res.Test.Loss)

	o.log.Info().
		Str("instrument", ir.Instrument).
		Int("train_samples", res.TrainSamples).
		Int("test_samples", res.TestSamples).
		Float64("train_accuracy", res.Train.Accuracy).
		Float64("test_accuracy", res.Test.Accuracy).
		Float64("test_loss", res.Test.Loss).
		Str("model_id", ir.ModelID).
		Msg("model trained")

	return nil
}

// modelPath names the persisted model when the store is file backed.
func (o *Orchestrator) modelPath(instrument string) string {
	if ps, ok := o.models.(interface{ Path(string) string }); ok {
		return filepath.Base(ps.Path(instrument))
	}
	return ""
}

// writePerformance merges the performance of trained instruments into the
// summary file.
func (o *Orchestrator) writePerformance(result *RunResult) error {
	entries := make(reporting.PerformanceReport)
	for _, ir := range result.Instruments {
		if ir.Status == StatusOK && ir.Performance != nil {
			entries[ir.Instrument] = *ir.Performance
		}
	}
	if len(entries) == 0 {
		return nil
	}
	if err := reporting.UpdatePerformance(o.performancePath(), entries); err != nil {
		return fmt.Errorf("write performance: %w", err)
	}
	return nil
}

// predictInstrument builds inference windows from the current candles,
// normalizes them with the model's params and decodes the model output.
func (o *Orchestrator) predictInstrument(ctx context.Context, ir *InstrumentResult, runID string, loc *time.Location) error {
	var artifact *domain.ModelArtifact
	err := o.timed("model", "get", func() error {
		var err error
		artifact, err = o.models.Get(ctx, ir.Instrument)
		return err
	})
	if err != nil {
		return missingAsInput("load model", err)
	}
	if artifact.Kind != o.codec.Kind() {
		return fmt.Errorf("model kind %q, codec %q: %w", artifact.Kind, o.codec.Kind(), classifier.ErrUnsupportedModel)
	}

	model, err := o.codec.Decode(artifact.Payload)
	if err != nil {
		return fmt.Errorf("decode model: %w", err)
	}

	candles, err := o.candles.Candles(ctx, ir.Instrument, o.cfg.Data.Timeframe)
	if err != nil {
		return fmt.Errorf("load candles: %w", err)
	}
	ir.Candles = len(candles)

	windows, err := windowing.Build(candles, nil, artifact.Lookback)
	if err != nil {
		return fmt.Errorf("build windows: %w", err)
	}
	if len(windows) == 0 {
		return fmt.Errorf("%d candles leave no window after lookback %d: %w", len(candles), artifact.Lookback, domain.ErrInsufficientData)
	}
	ir.Windows = len(windows)

	batch := domain.Dataset{Windows: normalization.Transform(windows, artifact.Params)}
	out, err := model.Predict(ctx, batch.Inputs())
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	if err := decoding.CheckShape(out, len(windows)); err != nil {
		return err
	}

	trades, stats, err := decoding.Decode(out, candles, artifact.Lookback)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	path, err := reporting.WritePredictionsCSV(o.cfg.Output.Dir, ir.Instrument, trades, loc)
	if err != nil {
		return err
	}

	if o.predictions != nil && len(trades) > 0 {
		err := o.timed("prediction", "insert", func() error {
			return o.predictions.InsertBulk(ctx, runID, ir.Instrument, trades)
		})
		if err != nil {
			return fmt.Errorf("store predictions: %w", err)
		}
	}

	for _, skip := range stats.Skipped {
		o.log.Debug().Str("instrument", ir.Instrument).Err(skip).Msg("prediction skipped")
	}

	ir.Decode = stats
	ir.Distribution = decoding.Distribution(trades)
	ir.Confidence = metrics.SummarizeConfidence(trades)
	ir.OutputPath = path

	o.metrics.RecordPredictions(ir.Distribution, stats.NoTrade, stats.OutOfBounds)

	o.log.Info().
		Str("instrument", ir.Instrument).
		Int("windows", stats.Windows).
		Int("trades", stats.Emitted).
		Int("no_trade", stats.NoTrade).
		Int("out_of_bounds", stats.OutOfBounds).
		Interface("distribution", ir.Distribution).
		Float64("mean_confidence", ir.Confidence.Mean).
		Str("path", path).
		Msg("predictions written")

	return nil
}
