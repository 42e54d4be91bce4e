// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"copytrader-lab/internal/domain"
)

// DefaultNamespace prefixes every metric name of DefaultMetrics.
const DefaultNamespace = "copytrader_lab"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       *prometheus.HistogramVec
	InstrumentResults *prometheus.CounterVec

	// Labeling metrics
	CandlesLoaded  prometheus.Counter
	TradesLoaded   prometheus.Counter
	LabelsAssigned *prometheus.CounterVec
	WindowsBuilt   prometheus.Counter

	// Training metrics
	ModelAccuracy *prometheus.GaugeVec
	ModelLoss     *prometheus.GaugeVec

	// Prediction metrics
	PredictionsEmitted *prometheus.CounterVec
	PredictionsSkipped *prometheus.CounterVec

	// Storage metrics
	StoreOpDuration *prometheus.HistogramVec
	StoreOpErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance registered with the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)

	return &Metrics{
		// Run metrics
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of stage runs by status",
		}, []string{"stage", "status"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"stage"}),
		InstrumentResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "instrument_results_total",
			Help:      "Per-instrument outcomes by stage and status (ok, skipped, failed)",
		}, []string{"stage", "status"}),

		// Labeling metrics
		CandlesLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "labeling",
			Name:      "candles_loaded_total",
			Help:      "Total number of candles loaded",
		}),
		TradesLoaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "labeling",
			Name:      "trades_loaded_total",
			Help:      "Total number of trades loaded from trade history",
		}),
		LabelsAssigned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "labeling",
			Name:      "labels_assigned_total",
			Help:      "Total number of candle labels by action",
		}, []string{"action"}),
		WindowsBuilt: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "labeling",
			Name:      "windows_built_total",
			Help:      "Total number of feature windows built",
		}),

		// Training metrics
		ModelAccuracy: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "accuracy",
			Help:      "Accuracy of the latest model by instrument and split",
		}, []string{"instrument", "split"}),
		ModelLoss: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "training",
			Name:      "loss",
			Help:      "Mean cross-entropy of the latest model by instrument and split",
		}, []string{"instrument", "split"}),

		// Prediction metrics
		PredictionsEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "trades_emitted_total",
			Help:      "Total number of predicted trades by action",
		}, []string{"action"}),
		PredictionsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "windows_skipped_total",
			Help:      "Total number of windows that produced no trade, by reason",
		}, []string{"reason"}),

		// Storage metrics
		StoreOpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "op_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		StoreOpErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "op_errors_total",
			Help:      "Total number of failed store operations",
		}, []string{"store", "operation"}),

		// Health metrics
		LastSuccessfulRun: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last run without failed instruments",
		}, []string{"stage"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records a finished stage run.
func (m *Metrics) RecordRun(stage string, failed int, elapsed time.Duration) {
	status := "success"
	if failed > 0 {
		status = "partial"
	}
	m.RunsTotal.WithLabelValues(stage, status).Inc()
	m.RunDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if failed == 0 {
		m.LastSuccessfulRun.WithLabelValues(stage).SetToCurrentTime()
	}
}

// RecordInstrument records one instrument outcome of a stage.
func (m *Metrics) RecordInstrument(stage, status string) {
	m.InstrumentResults.WithLabelValues(stage, status).Inc()
}

// RecordLabels records loaded inputs and the label distribution of one instrument.
func (m *Metrics) RecordLabels(candles, trades int, counts map[domain.ActionLabel]int) {
	m.CandlesLoaded.Add(float64(candles))
	m.TradesLoaded.Add(float64(trades))
	for action, n := range counts {
		m.LabelsAssigned.WithLabelValues(action.String()).Add(float64(n))
	}
}

// RecordWindows records built feature windows.
func (m *Metrics) RecordWindows(n int) {
	m.WindowsBuilt.Add(float64(n))
}

// RecordModel records the latest accuracy and loss of an instrument's model.
func (m *Metrics) RecordModel(instrument, split string, accuracy, loss float64) {
	m.ModelAccuracy.WithLabelValues(instrument, split).Set(accuracy)
	m.ModelLoss.WithLabelValues(instrument, split).Set(loss)
}

// RecordPredictions records decoded trades and skipped windows.
func (m *Metrics) RecordPredictions(counts map[domain.ActionLabel]int, noTrade, outOfBounds int) {
	for action, n := range counts {
		m.PredictionsEmitted.WithLabelValues(action.String()).Add(float64(n))
	}
	m.PredictionsSkipped.WithLabelValues("no_trade").Add(float64(noTrade))
	m.PredictionsSkipped.WithLabelValues("out_of_bounds").Add(float64(outOfBounds))
}

// RecordStoreOp records one store operation.
func (m *Metrics) RecordStoreOp(store, operation string, elapsed time.Duration, err error) {
	m.StoreOpDuration.WithLabelValues(store, operation).Observe(elapsed.Seconds())
	if err != nil {
		m.StoreOpErrors.WithLabelValues(store, operation).Inc()
	}
}

// RecordRun records a finished stage run on DefaultMetrics.
func RecordRun(stage string, failed int, elapsed time.Duration) {
	DefaultMetrics.RecordRun(stage, failed, elapsed)
}

// RecordStoreOp records one store operation on DefaultMetrics.
func RecordStoreOp(store, operation string, elapsed time.Duration, err error) {
	DefaultMetrics.RecordStoreOp(store, operation, elapsed, err)
}
