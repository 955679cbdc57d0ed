package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/RyanBlaney/specimen/classify"
	"github.com/RyanBlaney/specimen/features"
	"github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/logging"
)

// Report file names
const (
	StatisticsFile     = "descriptive_statistics.csv"
	CorrelationFile    = "correlation_matrix.csv"
	HeatmapFile        = "correlation_heatmap.png"
	ProjectionsFile    = "pca_projections.csv"
	VarianceFile       = "pca_variance.csv"
	ProjectionPlotFile = "pca_2d.png"
	PC3PlotFile        = "pca_pc1_pc3.png"
	VariancePlotFile   = "pca_variance.png"
	ComparisonFile     = "model_comparison.csv"
)

// Per-model report file suffixes, prefixed with the model name
const (
	ClassificationReportSuffix = "_classification_report.csv"
	ConfusionTableSuffix       = "_confusion_matrix.csv"
	ConfusionPlotSuffix        = "_confusion_matrix.png"
	ROCPlotSuffix              = "_roc.png"
	PrecisionRecallPlotSuffix  = "_precision_recall.png"
	MetricsPlotSuffix          = "_metrics.png"
)

// Report lists what an analysis run produced
type Report struct {
	Rows          int           `json:"rows" yaml:"rows"`
	Species       int           `json:"species" yaml:"species"`
	Components    int           `json:"components,omitempty" yaml:"components,omitempty"`
	VarianceRatio []float64     `json:"variance_ratio,omitempty" yaml:"variance_ratio,omitempty"`
	Models        []ModelScore  `json:"models,omitempty" yaml:"models,omitempty"`
	Outputs       []string      `json:"outputs" yaml:"outputs"`
	Skipped       []string      `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
}

// Analyzer computes and persists the statistical reports of a merged table
type Analyzer struct {
	config *config.AnalysisConfig
	logger logging.Logger
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(cfg *config.AnalysisConfig) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultAnalysisConfig()
	}
	return &Analyzer{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_analyzer",
		}),
	}
}

// Statistics writes the per-species descriptive statistics table
func (a *Analyzer) Statistics(ctx context.Context, merged *features.Table[features.MergedRecord]) (*SpeciesStats, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	grouped := GroupStats(merged)
	path := filepath.Join(a.config.TablesDir, StatisticsFile)
	if err := writeFile(path, grouped.WriteCSV); err != nil {
		return nil, nil, err
	}

	a.logger.WithContext(ctx).Info("Descriptive statistics saved", logging.Fields{
		"species": len(grouped.Groups),
		"output":  path,
	})
	return grouped, []string{path}, nil
}

// Correlations writes the correlation matrix and, when plots are enabled,
// its heat map
func (a *Analyzer) Correlations(ctx context.Context, merged *features.Table[features.MergedRecord]) (*CorrelationMatrix, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	corr, err := Correlate(merged)
	if err != nil {
		return nil, nil, err
	}

	path := filepath.Join(a.config.TablesDir, CorrelationFile)
	if err := writeFile(path, corr.WriteCSV); err != nil {
		return nil, nil, err
	}
	outputs := []string{path}

	if a.config.Plots {
		figure := filepath.Join(a.config.FiguresDir, HeatmapFile)
		if err := PlotHeatmap(corr, figure); err != nil {
			return nil, nil, err
		}
		outputs = append(outputs, figure)
	}

	a.logger.WithContext(ctx).Info("Correlation matrix saved", logging.Fields{
		"outputs": outputs,
	})
	return corr, outputs, nil
}

// PCA writes the projections and explained variance tables and, when plots
// are enabled, the 2-D projection and cumulative variance figures
func (a *Analyzer) PCA(ctx context.Context, merged *features.Table[features.MergedRecord]) (*PCAResult, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	result, err := PCA(merged, a.config.PCAComponents)
	if err != nil {
		return nil, nil, err
	}

	projections := filepath.Join(a.config.TablesDir, ProjectionsFile)
	if err := writeFile(projections, result.WriteProjections); err != nil {
		return nil, nil, err
	}
	variance := filepath.Join(a.config.TablesDir, VarianceFile)
	if err := writeFile(variance, result.WriteVariance); err != nil {
		return nil, nil, err
	}
	outputs := []string{projections, variance}

	if a.config.Plots {
		if result.Components >= 2 {
			figure := filepath.Join(a.config.FiguresDir, ProjectionPlotFile)
			if err := PlotProjection(result, figure); err != nil {
				return nil, nil, err
			}
			outputs = append(outputs, figure)
		}
		if result.Components >= 3 {
			figure := filepath.Join(a.config.FiguresDir, PC3PlotFile)
			if err := PlotComponents(result, 0, 2, figure); err != nil {
				return nil, nil, err
			}
			outputs = append(outputs, figure)
		}

		figure := filepath.Join(a.config.FiguresDir, VariancePlotFile)
		if err := PlotVariance(result, figure); err != nil {
			return nil, nil, err
		}
		outputs = append(outputs, figure)
	}

	a.logger.WithContext(ctx).Info("PCA completed", logging.Fields{
		"components":     result.Components,
		"variance_ratio": result.VarianceRatio,
	})
	return result, outputs, nil
}

// Selection picks the reports produced by Run
type Selection struct {
	Statistics     bool
	Correlation    bool
	PCA            bool
	Classification bool
}

// All selects every report
var All = Selection{Statistics: true, Correlation: true, PCA: true, Classification: true}

// Run produces the selected reports. Correlation and PCA are skipped with a
// warning when the table has too few rows for them, classification when it
// cannot be split into stratified train and test sets.
func (a *Analyzer) Run(ctx context.Context, merged *features.Table[features.MergedRecord], sel Selection) (*Report, error) {
	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Run",
	})
	start := time.Now()

	report := &Report{
		Rows:    merged.Len(),
		Species: countSpecies(merged),
	}

	if sel.Statistics {
		_, outputs, err := a.Statistics(ctx, merged)
		if err != nil {
			return nil, err
		}
		report.Outputs = append(report.Outputs, outputs...)
	}

	if sel.Correlation {
		_, outputs, err := a.Correlations(ctx, merged)
		switch {
		case errors.Is(err, ErrNotEnoughRows):
			logger.Warn("Skipping correlation analysis", logging.Fields{"rows": merged.Len()})
			report.Skipped = append(report.Skipped, "correlation")
		case err != nil:
			return nil, err
		default:
			report.Outputs = append(report.Outputs, outputs...)
		}
	}

	if sel.PCA {
		result, outputs, err := a.PCA(ctx, merged)
		switch {
		case errors.Is(err, ErrNotEnoughRows):
			logger.Warn("Skipping PCA", logging.Fields{"rows": merged.Len()})
			report.Skipped = append(report.Skipped, "pca")
		case err != nil:
			return nil, err
		default:
			report.Components = result.Components
			report.VarianceRatio = result.VarianceRatio
			report.Outputs = append(report.Outputs, outputs...)
		}
	}

	if sel.Classification {
		result, outputs, err := a.Classify(ctx, merged)
		switch {
		case errors.Is(err, classify.ErrNotEnoughSamples):
			logger.Warn("Skipping classification", logging.Fields{
				"rows":    merged.Len(),
				"species": report.Species,
				"reason":  err.Error(),
			})
			report.Skipped = append(report.Skipped, "classification")
		case err != nil:
			return nil, err
		default:
			report.Models = Scores(result)
			report.Outputs = append(report.Outputs, outputs...)
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

func countSpecies(merged *features.Table[features.MergedRecord]) int {
	seen := make(map[string]struct{})
	for _, row := range merged.Rows {
		seen[row.Species] = struct{}{}
	}
	return len(seen)
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
