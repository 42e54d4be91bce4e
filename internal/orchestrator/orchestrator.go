// Package orchestrator runs the dataset, training and prediction stages over
// the configured instruments.
// Flow: load → label → window → normalize → (dataset) → train → (model) → predict → decode
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"copytrader-lab/internal/classifier"
	"copytrader-lab/internal/classifier/centroid"
	"copytrader-lab/internal/config"
	"copytrader-lab/internal/decoding"
	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/loader"
	"copytrader-lab/internal/metrics"
	"copytrader-lab/internal/observability"
	"copytrader-lab/internal/reporting"
	"copytrader-lab/internal/storage"
	"copytrader-lab/internal/verification"
)

// ErrPanic marks an instrument whose stage panicked. It fails the instrument.
var ErrPanic = errors.New("instrument panicked")

// Stage names a pipeline run.
type Stage string

const (
	StagePrepare Stage = "prepare"
	StageTrain   Stage = "train"
	StagePredict Stage = "predict"
	StageVerify  Stage = "verify"
)

// Status is the outcome of one instrument in a run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// InstrumentResult reports one instrument of a run. Only the fields of the
// run's stage are set.
type InstrumentResult struct {
	Instrument string
	Status     Status
	Err        error

	// Prepare
	Candles   int
	Trades    int
	Windows   int
	Labels    map[domain.ActionLabel]int
	DatasetID string

	// Verify
	Divergences []verification.FieldDivergence

	// Train
	ModelID     string
	Performance *reporting.Performance

	// Predict
	Decode       decoding.Stats
	Distribution map[domain.ActionLabel]int
	Confidence   metrics.ConfidenceSummary
	OutputPath   string
}

// RunResult contains results from one stage run, in configured instrument order.
type RunResult struct {
	Stage       Stage
	RunID       string
	StartedAt   time.Time
	Duration    time.Duration
	Instruments []InstrumentResult
}

// Count returns the number of instruments with the given status.
func (r *RunResult) Count(status Status) int {
	n := 0
	for _, ir := range r.Instruments {
		if ir.Status == status {
			n++
		}
	}
	return n
}

// Orchestrator coordinates stage execution.
type Orchestrator struct {
	cfg *config.Config

	candles     loader.CandleSource
	trades      loader.TradeSource
	datasets    storage.DatasetStore
	models      storage.ModelStore
	predictions storage.PredictionStore

	classifier classifier.Classifier
	codec      classifier.Codec

	log     zerolog.Logger
	metrics *observability.Metrics
	clock   func() time.Time
	runID   func() string
}

// Options for creating Orchestrator.
type Options struct {
	Config *config.Config

	// Required inputs and stores
	Candles  loader.CandleSource
	Trades   loader.TradeSource
	Datasets storage.DatasetStore
	Models   storage.ModelStore

	// Predictions additionally receives predicted trades when set.
	Predictions storage.PredictionStore

	// Classifier and Codec default to the centroid baseline.
	Classifier classifier.Classifier
	Codec      classifier.Codec

	Logger  zerolog.Logger
	Metrics *observability.Metrics // defaults to observability.DefaultMetrics
	Clock   func() time.Time
	RunID   func() string // prediction run ids, defaults to random UUIDs
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		cfg:         opts.Config,
		candles:     opts.Candles,
		trades:      opts.Trades,
		datasets:    opts.Datasets,
		models:      opts.Models,
		predictions: opts.Predictions,
		classifier:  opts.Classifier,
		codec:       opts.Codec,
		log:         opts.Logger,
		metrics:     opts.Metrics,
		clock:       opts.Clock,
		runID:       opts.RunID,
	}
	if o.cfg == nil {
		o.cfg = config.Default()
	}
	if o.classifier == nil {
		o.classifier = centroid.New()
	}
	if o.codec == nil {
		o.codec = centroid.Codec{}
	}
	if o.metrics == nil {
		o.metrics = observability.DefaultMetrics
	}
	if o.clock == nil {
		o.clock = func() time.Time { return time.Now().UTC() }
	}
	if o.runID == nil {
		o.runID = uuid.NewString
	}
	return o
}

// Prepare builds and saves the normalized dataset of every instrument.
func (o *Orchestrator) Prepare(ctx context.Context) (*RunResult, error) {
	interval, err := o.cfg.Interval()
	if err != nil {
		return nil, err
	}
	return o.run(ctx, StagePrepare, "", func(ctx context.Context, ir *InstrumentResult) error {
		return o.prepareInstrument(ctx, ir, interval)
	}, nil)
}

// Train fits, evaluates and saves a model per prepared dataset, then merges
// the performance of every trained instrument into model-performance.json.
func (o *Orchestrator) Train(ctx context.Context) (*RunResult, error) {
	return o.run(ctx, StageTrain, "", o.trainInstrument, o.writePerformance)
}

// Predict decodes model output over each instrument's current candles and
// writes predicted-trades-<coin>.csv files.
func (o *Orchestrator) Predict(ctx context.Context) (*RunResult, error) {
	loc, err := o.cfg.OutputLocation()
	if err != nil {
		return nil, err
	}
	runID := o.runID()
	return o.run(ctx, StagePredict, runID, func(ctx context.Context, ir *InstrumentResult) error {
		return o.predictInstrument(ctx, ir, runID, loc)
	}, nil)
}

// Verify rebuilds each instrument's dataset from the raw inputs and compares
// it with the stored dataset. A divergence fails the instrument.
func (o *Orchestrator) Verify(ctx context.Context) (*RunResult, error) {
	interval, err := o.cfg.Interval()
	if err != nil {
		return nil, err
	}
	return o.run(ctx, StageVerify, "", func(ctx context.Context, ir *InstrumentResult) error {
		return o.verifyInstrument(ctx, ir, interval)
	}, nil)
}

// RunAll executes prepare, train and predict in order. A stage error stops
// the sequence; per-instrument failures do not.
func (o *Orchestrator) RunAll(ctx context.Context) ([]*RunResult, error) {
	stages := []func(context.Context) (*RunResult, error){o.Prepare, o.Train, o.Predict}

	results := make([]*RunResult, 0, len(stages))
	for _, stage := range stages {
		res, err := stage(ctx)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

type instrumentFunc func(ctx context.Context, ir *InstrumentResult) error

// run fans fn out over the instruments, bounded by pipeline.workers.
// Instrument errors are recorded, never returned; only cancellation and the
// finish hook abort the run.
func (o *Orchestrator) run(ctx context.Context, stage Stage, runID string, fn instrumentFunc, finish func(*RunResult) error) (*RunResult, error) {
	instruments := o.cfg.Pipeline.Instruments
	result := &RunResult{
		Stage:       stage,
		RunID:       runID,
		StartedAt:   o.clock(),
		Instruments: make([]InstrumentResult, len(instruments)),
	}

	log := o.log.With().Str("stage", string(stage)).Logger()
	if runID != "" {
		log = log.With().Str("run_id", runID).Logger()
	}
	log.Info().Int("instruments", len(instruments)).Msg("stage started")

	workers := o.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, instrument := range instruments {
		i, instrument := i, instrument
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ir := &result.Instruments[i]
			ir.Instrument = instrument
			o.settle(log, stage, ir, guard(gctx, ir, fn))
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("%s: %w", stage, err)
	}

	if finish != nil {
		if err := finish(result); err != nil {
			return result, fmt.Errorf("%s: %w", stage, err)
		}
	}

	result.Duration = o.clock().Sub(result.StartedAt)
	failed := result.Count(StatusFailed)
	o.metrics.RecordRun(string(stage), failed, result.Duration)

	log.Info().
		Int("ok", result.Count(StatusOK)).
		Int("skipped", result.Count(StatusSkipped)).
		Int("failed", failed).
		Dur("duration", result.Duration).
		Msg("stage finished")

	return result, nil
}

// guard runs fn and converts a panic into an error so the remaining
// instruments still run.
func guard(ctx context.Context, ir *InstrumentResult, fn instrumentFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %w: %v", ir.Instrument, ErrPanic, r)
		}
	}()
	return fn(ctx, ir)
}

// settle maps an instrument error to its status and logs the outcome.
// Missing or insufficient input skips the instrument; anything else fails it.
func (o *Orchestrator) settle(log zerolog.Logger, stage Stage, ir *InstrumentResult, err error) {
	ir.Err = err
	ir.Status = classify(err)
	o.metrics.RecordInstrument(string(stage), string(ir.Status))

	switch ir.Status {
	case StatusOK:
		log.Info().Str("instrument", ir.Instrument).Msg("instrument done")
	case StatusSkipped:
		log.Warn().Str("instrument", ir.Instrument).Err(err).Msg("instrument skipped")
	default:
		log.Error().Str("instrument", ir.Instrument).Err(err).Msg("instrument failed")
	}
}

func classify(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, domain.ErrMissingInput), errors.Is(err, domain.ErrInsufficientData):
		return StatusSkipped
	default:
		return StatusFailed
	}
}

// timed runs a store operation and records its duration.
func (o *Orchestrator) timed(store, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	o.metrics.RecordStoreOp(store, operation, time.Since(start), err)
	return err
}

// missingAsInput converts storage.ErrNotFound into domain.ErrMissingInput.
func missingAsInput(what string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, domain.ErrMissingInput)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (o *Orchestrator) performancePath() string {
	return filepath.Join(o.cfg.Output.Dir, reporting.PerformanceFileName)
}
