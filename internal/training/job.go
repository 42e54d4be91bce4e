package training

import (
	"context"
	"fmt"

	"copytrader-lab/internal/classifier"
	"copytrader-lab/internal/domain"
	"copytrader-lab/internal/metrics"
)

// Config controls the train/test split.
type Config struct {
	TestFraction float64
	Seed         int64
}

// Result is the outcome of training one instrument's model.
type Result struct {
	Model        classifier.Model
	Weights      map[domain.ActionLabel]float64
	TrainSamples int
	TestSamples  int
	Train        metrics.Evaluation
	Test         metrics.Evaluation
}

// Run splits the dataset, trains clf with balanced class weights on the train
// part and evaluates the model on both parts. A dataset without windows
// returns ErrInsufficientData.
func Run(ctx context.Context, clf classifier.Classifier, ds *domain.Dataset, cfg Config) (*Result, error) {
	if ds == nil || len(ds.Windows) == 0 {
		return nil, fmt.Errorf("dataset has no windows: %w", domain.ErrInsufficientData)
	}

	x, y := ds.Inputs(), ds.Labels()
	split := StratifiedSplit(y, cfg.TestFraction, cfg.Seed)

	xTrain, yTrain := subset(x, y, split.Train)
	xTest, yTest := subset(x, y, split.Test)

	weights := ClassWeights(yTrain)
	model, err := clf.Train(ctx, xTrain, yTrain, weights)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	res := &Result{
		Model:        model,
		Weights:      weights,
		TrainSamples: len(yTrain),
		TestSamples:  len(yTest),
	}

	if res.Train, err = evaluate(ctx, model, xTrain, yTrain); err != nil {
		return nil, fmt.Errorf("evaluate train split: %w", err)
	}
	if res.Test, err = evaluate(ctx, model, xTest, yTest); err != nil {
		return nil, fmt.Errorf("evaluate test split: %w", err)
	}

	return res, nil
}

func evaluate(ctx context.Context, model classifier.Model, x classifier.Input, y []domain.ActionLabel) (metrics.Evaluation, error) {
	if len(y) == 0 {
		return metrics.Evaluation{}, nil
	}
	out, err := model.Predict(ctx, x)
	if err != nil {
		return metrics.Evaluation{}, err
	}
	return metrics.Evaluate(out, y)
}

func subset(x classifier.Input, y []domain.ActionLabel, idx []int) (classifier.Input, []domain.ActionLabel) {
	xs := make(classifier.Input, len(idx))
	ys := make([]domain.ActionLabel, len(idx))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}
