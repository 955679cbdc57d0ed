package analysis

import (
	"context"
	"encoding/csv"
	"io"
	"path/filepath"

	"github.com/RyanBlaney/specimen/classify"
	"github.com/RyanBlaney/specimen/features"
	"github.com/RyanBlaney/specimen/logging"
)

// ModelScore summarises the held-out performance of one model
type ModelScore struct {
	Model      string  `json:"model" yaml:"model"`
	Accuracy   float64 `json:"accuracy" yaml:"accuracy"`
	Precision  float64 `json:"weighted_precision" yaml:"weighted_precision"`
	Recall     float64 `json:"weighted_recall" yaml:"weighted_recall"`
	F1         float64 `json:"weighted_f1" yaml:"weighted_f1"`
	MacroF1    float64 `json:"macro_f1" yaml:"macro_f1"`
	MacroAUC   float64 `json:"macro_auc" yaml:"macro_auc"`
	MeanAP     float64 `json:"mean_average_precision" yaml:"mean_average_precision"`
}

// Scores returns the summary of every evaluated model in evaluation order
func Scores(result *classify.Result) []ModelScore {
	scores := make([]ModelScore, len(result.Evaluations))
	for i, e := range result.Evaluations {
		scores[i] = ModelScore{
			Model:      e.Model,
			Accuracy:   e.Report.Accuracy,
			Precision:  e.Report.WeightedAvg.Precision,
			Recall:     e.Report.WeightedAvg.Recall,
			F1:         e.Report.WeightedAvg.F1,
			MacroF1:    e.Report.MacroAvg.F1,
			MacroAUC:   e.MacroAUC(),
			MeanAP:     e.MeanAveragePrecision(),
		}
	}
	return scores
}

// writeComparison writes one row per model
func writeComparison(scores []ModelScore) func(io.Writer) error {
	return func(w io.Writer) error {
		cw := csv.NewWriter(w)
		header := []string{"model", "accuracy", "weighted_precision", "weighted_recall",
			"weighted_f1", "macro_f1", "macro_auc", "mean_average_precision"}
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, s := range scores {
			record := []string{s.Model}
			for _, v := range []float64{s.Accuracy, s.Precision, s.Recall, s.F1, s.MacroF1, s.MacroAUC, s.MeanAP} {
				record = append(record, features.FormatFloat(v))
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	}
}

// Classify trains every configured model on a stratified split, then writes
// each model's classification report and confusion matrix plus a model
// comparison table. With plots enabled it also draws the confusion matrix,
// ROC, precision-recall and weighted metric figures of each model.
func (a *Analyzer) Classify(ctx context.Context, merged *features.Table[features.MergedRecord]) (*classify.Result, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	result, err := classify.NewEvaluator(&a.config.Classification).Evaluate(ctx, merged)
	if err != nil {
		return nil, nil, err
	}

	var outputs []string
	for _, e := range result.Evaluations {
		tables := []struct {
			suffix string
			write  func(io.Writer) error
		}{
			{ClassificationReportSuffix, e.Report.WriteCSV},
			{ConfusionTableSuffix, e.Confusion.WriteCSV},
		}
		for _, t := range tables {
			path := filepath.Join(a.config.TablesDir, e.Model+t.suffix)
			if err := writeFile(path, t.write); err != nil {
				return nil, nil, err
			}
			outputs = append(outputs, path)
		}

		if !a.config.Plots {
			continue
		}
		figures := []struct {
			suffix string
			plot   func(path string) error
		}{
			{ConfusionPlotSuffix, func(path string) error { return PlotConfusion(e.Confusion, e.Model, path) }},
			{ROCPlotSuffix, func(path string) error { return PlotROC(e, path) }},
			{PrecisionRecallPlotSuffix, func(path string) error { return PlotPrecisionRecall(e, path) }},
			{MetricsPlotSuffix, func(path string) error { return PlotModelMetrics(e.Report, path) }},
		}
		for _, f := range figures {
			path := filepath.Join(a.config.FiguresDir, e.Model+f.suffix)
			if err := f.plot(path); err != nil {
				return nil, nil, err
			}
			outputs = append(outputs, path)
		}
	}

	comparison := filepath.Join(a.config.TablesDir, ComparisonFile)
	if err := writeFile(comparison, writeComparison(Scores(result))); err != nil {
		return nil, nil, err
	}
	outputs = append(outputs, comparison)

	a.logger.WithContext(ctx).Info("Classification completed", logging.Fields{
		"models":  len(result.Evaluations),
		"train":   len(result.Train),
		"test":    len(result.Test),
		"outputs": len(outputs),
	})
	return result, outputs, nil
}
