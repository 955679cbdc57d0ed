package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/specimen/features/extractors"
	"github.com/RyanBlaney/specimen/logging"
	"github.com/RyanBlaney/specimen/metrics"
	"github.com/RyanBlaney/specimen/pipeline"
	"github.com/RyanBlaney/specimen/preprocess"
	"github.com/RyanBlaney/specimen/progress"
	"github.com/RyanBlaney/specimen/store"
)

func (a *app) runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [stage...]",
		Short: "Run pipeline stages",
		Long: `Run the given pipeline stages in order. Without arguments, or with "all",
every stage runs: clean, crop, resize, grayscale, enhance, spatial, frequency,
texture, aggregate, stats, corr, pca and classify.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := pipeline.ParseStages(args)
			if err != nil {
				return err
			}
			return a.runPipeline(cmd, stages)
		},
	}
	a.extractionFlags(cmd)
	a.analysisFlags(cmd)
	a.runFlags(cmd)
	return cmd
}

func (a *app) preprocessCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "preprocess [stage...]",
		Short: "Clean, crop, resize, convert and enhance the raw corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			stages := preprocess.AllStages
			if len(args) > 0 {
				stages = make([]preprocess.Stage, 0, len(args))
				for _, arg := range args {
					stage, err := preprocess.ParseStage(arg)
					if err != nil {
						return err
					}
					stages = append(stages, stage)
				}
			}

			summaries, err := preprocess.New(&a.settings.Preprocess, progress.NewLogObserver()).
				RunStages(cmd.Context(), stages)
			for _, s := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %4d images  %4d written  %4d rejected  -> %s\n",
					s.Stage, s.Images, s.Written, len(s.Rejected), s.Output)
			}
			return err
		},
	}
}

func (a *app) extractCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [spatial|frequency|texture...]",
		Short: "Extract feature tables from the enhanced corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := extractors.AllKinds
			if len(args) > 0 {
				kinds = make([]extractors.Kind, 0, len(args))
				for _, arg := range args {
					kind, err := extractors.ParseKind(arg)
					if err != nil {
						return err
					}
					kinds = append(kinds, kind)
				}
			}

			stages := make([]pipeline.Stage, len(kinds))
			for i, kind := range kinds {
				stages[i] = pipeline.Stage(kind)
			}
			return a.runPipeline(cmd, stages)
		},
	}
	a.extractionFlags(cmd)
	a.runFlags(cmd)
	return cmd
}

func (a *app) aggregateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Merge the spatial, frequency and texture tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPipeline(cmd, []pipeline.Stage{pipeline.StageAggregate})
		},
	}
	cmd.Flags().String("output-dir", "", "Directory of the feature tables")
	a.runFlags(cmd)
	return cmd
}

func (a *app) analyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [stats|corr|pca|classify...]",
		Short: "Aggregate the feature tables and write the statistical and classification reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			stages := []pipeline.Stage{pipeline.StageStats, pipeline.StageCorrelation, pipeline.StagePCA, pipeline.StageClassify}
			if len(args) > 0 {
				stages = make([]pipeline.Stage, 0, len(args))
				for _, arg := range args {
					stage, err := pipeline.ParseStage(arg)
					if err != nil {
						return err
					}
					switch stage {
					case pipeline.StageStats, pipeline.StageCorrelation, pipeline.StagePCA, pipeline.StageClassify:
					default:
						return fmt.Errorf("%q is not an analysis stage", arg)
					}
					stages = append(stages, stage)
				}
			}
			return a.runPipeline(cmd, stages)
		},
	}
	cmd.Flags().String("output-dir", "", "Directory of the feature tables")
	a.analysisFlags(cmd)
	a.runFlags(cmd)
	return cmd
}

func (a *app) extractionFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "", "Corpus read by the extractors (default: enhanced directory)")
	cmd.Flags().String("output-dir", "", "Directory of the feature tables")
	cmd.Flags().Int("workers", 4, "Images decoded concurrently per extractor")
}

func (a *app) analysisFlags(cmd *cobra.Command) {
	cmd.Flags().String("tables-dir", "", "Directory of the report tables")
	cmd.Flags().String("figures-dir", "", "Directory of the figures")
	cmd.Flags().Int("components", 10, "Maximum number of principal components")
	cmd.Flags().Bool("plots", true, "Render figures")
	cmd.Flags().StringSlice("models", nil, "Classifiers to evaluate (default: RandomForest, SVM_RBF, LogisticRegression)")
	cmd.Flags().Float64("test-size", 0.25, "Fraction of rows held out for classifier evaluation")
	cmd.Flags().Uint64("seed", 42, "Seed of the train/test split and the random forest")
}

func (a *app) runFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("store", false, "Record the merged table in the SQLite run history")
	cmd.Flags().Bool("metrics", false, "Write a Prometheus textfile after the run")
	cmd.Flags().String("summary", "", "Path of the YAML run summary")
}

// runPipeline runs stages with the loaded settings and prints the summary
func (a *app) runPipeline(cmd *cobra.Command, stages []pipeline.Stage) error {
	s := a.settings
	opts := pipeline.Options{
		Preprocess:  &s.Preprocess,
		Extraction:  &s.Extraction,
		Output:      &s.Output,
		Analysis:    &s.Analysis,
		FeatureDir:  s.FeatureDir,
		SummaryPath: s.SummaryPath,
		Observer:    progress.NewLogObserver(),
	}

	if s.Store.Enabled {
		db, err := store.Open(s.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.Store = db
	}

	if s.Metrics.Enabled {
		m, err := metrics.NewPipelineMetrics(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		opts.Metrics = m
		opts.MetricsPath = s.Metrics.Path
	}

	summary, err := pipeline.New(opts).Run(cmd.Context(), stages)
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return err
	}

	if s.SummaryPath != "" {
		logging.Info("Run summary written", logging.Fields{"path": s.SummaryPath})
	}
	return nil
}

func printSummary(w io.Writer, s *pipeline.RunSummary) {
	status := "ok"
	if !s.Success {
		status = "failed"
	}
	fmt.Fprintf(w, "run %s: %s in %s\n", s.RunID, status, s.Duration.Round(time.Millisecond))

	for _, p := range s.Preprocess {
		fmt.Fprintf(w, "  %-10s %4d written  %4d rejected\n", p.Stage, p.Written, len(p.Rejected))
	}
	for _, e := range s.Extraction {
		fmt.Fprintf(w, "  %-10s %4d rows     %4d skipped\n", e.Extractor, e.Processed, e.Skipped)
	}
	if s.Aggregate != nil {
		fmt.Fprintf(w, "  %-10s %4d rows\n", "aggregate", s.Aggregate.MergedRows)
	}
	if s.Analysis != nil {
		fmt.Fprintf(w, "  %-10s %4d species  %d components\n", "analysis", s.Analysis.Species, s.Analysis.Components)
		for _, skipped := range s.Analysis.Skipped {
			fmt.Fprintf(w, "  %-10s skipped: not enough rows\n", skipped)
		}
		for _, m := range s.Analysis.Models {
			fmt.Fprintf(w, "  %-18s accuracy %.3f  weighted f1 %.3f  macro auc %.3f\n", m.Model, m.Accuracy, m.F1, m.MacroAUC)
		}
		for _, out := range s.Analysis.Outputs {
			fmt.Fprintf(w, "    %s\n", out)
		}
	}
	if s.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", s.Error)
	}
}
