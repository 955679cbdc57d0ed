package classify

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/RyanBlaney/specimen/features"
	"github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/logging"
)

// Evaluation is the held-out performance of one trained model
type Evaluation struct {
	Model     string
	Confusion *ConfusionMatrix
	Report    *Report

	// One-vs-rest curves, one per class
	ROC             []Curve
	PrecisionRecall []Curve

	Duration time.Duration
}

// MacroAUC returns the mean ROC AUC over classes with a defined curve
func (e *Evaluation) MacroAUC() float64 {
	return meanArea(e.ROC)
}

// MeanAveragePrecision returns the mean average precision over classes
// with a defined curve
func (e *Evaluation) MeanAveragePrecision() float64 {
	return meanArea(e.PrecisionRecall)
}

// Result holds the split and the evaluation of every configured model
type Result struct {
	Classes     []string
	Train       []features.Key
	Test        []features.Key
	Evaluations []*Evaluation
}

// Evaluator trains the configured models on a stratified split of the
// merged table and scores them on the held-out rows
type Evaluator struct {
	config *config.ClassificationConfig
	logger logging.Logger
}

// NewEvaluator creates a new evaluator
func NewEvaluator(cfg *config.ClassificationConfig) *Evaluator {
	if cfg == nil {
		cfg = config.DefaultClassificationConfig()
	}
	return &Evaluator{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "species_classifier",
		}),
	}
}

// Evaluate splits the table, standardises it with training statistics and
// evaluates every model in configuration order
func (e *Evaluator) Evaluate(ctx context.Context, merged *features.Table[features.MergedRecord]) (*Result, error) {
	logger := e.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Evaluate",
	})

	ds, err := FromTable(merged)
	if err != nil {
		return nil, err
	}
	if len(ds.Classes) < 2 {
		return nil, fmt.Errorf("classification needs 2 species, have %d: %w", len(ds.Classes), ErrNotEnoughSamples)
	}

	trainIdx, testIdx, err := StratifiedSplit(ds.Labels, e.config.TestSize, e.config.Seed)
	if err != nil {
		return nil, err
	}
	train, test := ds.Subset(trainIdx), ds.Subset(testIdx)

	scaler := FitScaler(train.X)
	trainX, testX := scaler.Transform(train.X), scaler.Transform(test.X)

	logger.Info("Training classifiers", logging.Fields{
		"classes": len(ds.Classes),
		"train":   train.Len(),
		"test":    test.Len(),
		"models":  e.config.Models,
	})

	result := &Result{Classes: ds.Classes, Train: train.Keys, Test: test.Keys}
	for _, name := range e.config.Models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		model, err := New(name, e.config)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		if err := model.Fit(ctx, trainX, train.Labels, len(ds.Classes)); err != nil {
			return nil, fmt.Errorf("failed to train %s: %w", model.Name(), err)
		}
		eval := evaluate(model, testX, test.Labels, ds.Classes)
		eval.Duration = time.Since(start)

		logger.Info("Model evaluated", logging.Fields{
			"model":    eval.Model,
			"accuracy": eval.Report.Accuracy,
			"macro_f1": eval.Report.MacroAvg.F1,
			"duration": eval.Duration,
		})
		result.Evaluations = append(result.Evaluations, eval)
	}
	return result, nil
}

func evaluate(model Classifier, x *mat.Dense, labels []int, classes []string) *Evaluation {
	scores := model.Scores(x)
	predicted := Predict(scores)
	confusion := NewConfusionMatrix(classes, labels, predicted)

	eval := &Evaluation{
		Model:     model.Name(),
		Confusion: confusion,
		Report:    NewReport(model.Name(), confusion),
	}

	positive := make([]bool, len(labels))
	for c, class := range classes {
		for i, l := range labels {
			positive[i] = l == c
		}
		column := mat.Col(nil, c, scores)
		eval.ROC = append(eval.ROC, ROC(class, positive, column))
		eval.PrecisionRecall = append(eval.PrecisionRecall, PrecisionRecall(class, positive, column))
	}
	return eval
}

func meanArea(curves []Curve) float64 {
	sum, n := 0.0, 0
	for _, c := range curves {
		if !math.IsNaN(c.Area) {
			sum += c.Area
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
