package reporting

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/metrics"
)

// PerformanceFileName is the name of the model summary file in the output dir.
const PerformanceFileName = "model-performance.json"

// Performance summarizes one instrument's trained model.
type Performance struct {
	TrainAccuracy float64                        `json:"train_accuracy"`
	TestAccuracy  float64                        `json:"test_accuracy"`
	TrainLoss     float64                        `json:"train_loss"`
	TestLoss      float64                        `json:"test_loss"`
	NumClasses    int                            `json:"num_classes"`
	TrainSamples  int                            `json:"train_samples"`
	TestSamples   int                            `json:"test_samples"`
	ModelPath     string                         `json:"model_path"`
	DatasetID     string                         `json:"dataset_id"`
	ModelID       string                         `json:"model_id"`
	ClassWeights  map[domain.ActionLabel]float64 `json:"class_weights"`
	Test          metrics.Evaluation             `json:"test"`
}

// PerformanceReport maps instrument to its model performance.
type PerformanceReport map[string]Performance

// ReadPerformance loads a performance report. A missing file gives an empty report.
func ReadPerformance(path string) (PerformanceReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return PerformanceReport{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	report := PerformanceReport{}
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return report, nil
}

// UpdatePerformance merges entries into the report at path, replacing entries
// of the same instrument and keeping the others.
func UpdatePerformance(path string, entries PerformanceReport) error {
	report, err := ReadPerformance(path)
	if err != nil {
		return err
	}
	for instrument, p := range entries {
		report[instrument] = p
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode performance: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}
