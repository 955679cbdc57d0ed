// Package pipeline runs the species image workflow end to end:
// preprocessing, the three descriptor extractors, aggregation and the
// statistical reports.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/specimen/analysis"
	"github.com/RyanBlaney/specimen/corpus"
	"github.com/RyanBlaney/specimen/features"
	"github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/features/extractors"
	"github.com/RyanBlaney/specimen/logging"
	"github.com/RyanBlaney/specimen/metrics"
	"github.com/RyanBlaney/specimen/preprocess"
	"github.com/RyanBlaney/specimen/progress"
	"github.com/RyanBlaney/specimen/store"
)

// Options wires the pipeline. Nil configs fall back to their defaults;
// Store and Metrics are optional.
type Options struct {
	Preprocess *preprocess.Config
	Extraction *config.ExtractionConfig
	Output     *config.OutputConfig
	Analysis   *config.AnalysisConfig

	// Corpus read by the extractors. Empty means the enhancement output.
	FeatureDir string

	// Where the run summary is written. Empty disables it.
	SummaryPath string

	// Where metrics are written after the run. Empty disables it.
	MetricsPath string

	Observer progress.Observer
	Store    *store.Store
	Metrics  *metrics.PipelineMetrics
}

// Pipeline runs enabled stages in a fixed order
type Pipeline struct {
	opts     Options
	observer progress.Observer
	logger   logging.Logger
}

// New creates a pipeline
func New(opts Options) *Pipeline {
	if opts.Preprocess == nil {
		opts.Preprocess = preprocess.DefaultConfig()
	}
	if opts.Extraction == nil {
		opts.Extraction = config.DefaultExtractionConfig()
	}
	if opts.Output == nil {
		opts.Output = config.DefaultOutputConfig()
	}
	if opts.Analysis == nil {
		opts.Analysis = config.DefaultAnalysisConfig()
	}
	if opts.FeatureDir == "" {
		opts.FeatureDir = opts.Preprocess.EnhancedDir
	}

	observer := opts.Observer
	if opts.Metrics != nil {
		observer = progress.Multi(observer, opts.Metrics)
	}
	if observer == nil {
		observer = progress.Discard
	}

	return &Pipeline{
		opts:     opts,
		observer: observer,
		logger: logging.WithFields(logging.Fields{
			"component": "pipeline",
		}),
	}
}

// Run executes the given stages in pipeline order. Preprocessing stages run
// one after another; the extractors run concurrently; aggregation waits for
// all of them and runs whenever an analysis stage is enabled.
//
// The returned summary is non-nil even when a stage fails, and is saved to
// SummaryPath in both cases.
func (p *Pipeline) Run(ctx context.Context, stages []Stage) (*RunSummary, error) {
	set := newStageSet(stages)
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Stages:    set.ordered(),
	}

	logger := p.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Run",
		"run_id":   summary.RunID,
	})
	logger.Info("Pipeline started", logging.Fields{"stages": summary.Stages})

	err := p.run(ctx, set, summary)

	summary.FinishedAt = time.Now().UTC()
	summary.Duration = summary.FinishedAt.Sub(summary.StartedAt)
	summary.Success = err == nil
	if err != nil {
		summary.Error = err.Error()
		logger.Error(err, "Pipeline failed")
	} else {
		logger.Info("Pipeline completed", logging.Fields{"duration": summary.Duration})
	}

	if p.opts.Metrics != nil {
		p.opts.Metrics.RecordRun(summary.Success)
		if p.opts.MetricsPath != "" {
			if werr := p.opts.Metrics.WriteTextfile(p.opts.MetricsPath); werr != nil {
				logger.Warn("Failed to write metrics", logging.Fields{"error": werr.Error()})
			}
		}
	}

	if p.opts.SummaryPath != "" {
		if serr := summary.Save(p.opts.SummaryPath); serr != nil && err == nil {
			err = serr
			summary.Success = false
		}
	}

	return summary, err
}

func (p *Pipeline) run(ctx context.Context, set stageSet, summary *RunSummary) error {
	if stages := set.preprocessing(); len(stages) > 0 {
		summaries, err := preprocess.New(p.opts.Preprocess, p.observer).RunStages(ctx, stages)
		summary.Preprocess = summaries
		if err != nil {
			return err
		}
	}

	if kinds := set.extraction(); len(kinds) > 0 {
		summaries, err := p.extract(ctx, kinds)
		if err != nil {
			return err
		}
		summary.Extraction = summaries
	}

	if !set.aggregation() {
		return nil
	}

	merged, result, err := p.aggregate(ctx)
	if err != nil {
		return err
	}
	summary.Aggregate = result

	if p.opts.Store != nil {
		run := store.Run{
			ID:        summary.RunID,
			StartedAt: summary.StartedAt,
			// finish time of the data, not of the reports
			FinishedAt: time.Now().UTC(),
			InputDir:   p.opts.FeatureDir,
		}
		if err := p.opts.Store.SaveRun(ctx, run, merged); err != nil {
			return err
		}
	}

	if !set.analysis() {
		return nil
	}

	report, err := p.analyze(ctx, merged, analysis.Selection{
		Statistics:     set[StageStats],
		Correlation:    set[StageCorrelation],
		PCA:            set[StagePCA],
		Classification: set[StageClassify],
	})
	if err != nil {
		return err
	}
	summary.Analysis = report
	return nil
}

// extract runs the extractors concurrently over the feature corpus. Each
// writes its own table; summaries come back in extractor order.
func (p *Pipeline) extract(ctx context.Context, kinds []extractors.Kind) ([]*extractors.Summary, error) {
	factory := extractors.NewExtractorFactory(p.opts.Extraction)
	c := corpus.NewDirCorpus(p.opts.FeatureDir)

	paths := map[extractors.Kind]string{
		extractors.KindSpatial:   p.opts.Output.SpatialPath(),
		extractors.KindFrequency: p.opts.Output.FrequencyPath(),
		extractors.KindTexture:   p.opts.Output.TexturePath(),
	}

	summaries := make([]*extractors.Summary, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			s, err := factory.ExtractToFile(gctx, kind, c, paths[kind], p.observer)
			if err != nil {
				return fmt.Errorf("%s extraction failed: %w", kind, err)
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (p *Pipeline) aggregate(ctx context.Context) (*features.Table[features.MergedRecord], *features.AggregateResult, error) {
	stage := string(StageAggregate)
	p.observer.OnEvent(progress.Event{Type: progress.StageStarted, Stage: stage})

	merged, result, err := features.NewAggregator(p.opts.Output).Run(ctx)
	if err != nil {
		return nil, nil, err
	}

	if p.opts.Metrics != nil {
		p.opts.Metrics.SetMergedRows(result.MergedRows)
	}
	p.observer.OnEvent(progress.Event{
		Type:     progress.StageFinished,
		Stage:    stage,
		Done:     result.MergedRows,
		Total:    result.SpatialRows,
		Duration: result.Duration,
	})
	return merged, result, nil
}

func (p *Pipeline) analyze(ctx context.Context, merged *features.Table[features.MergedRecord], sel analysis.Selection) (*analysis.Report, error) {
	stage := "analysis"
	p.observer.OnEvent(progress.Event{Type: progress.StageStarted, Stage: stage})

	report, err := analysis.NewAnalyzer(p.opts.Analysis).Run(ctx, merged, sel)
	if err != nil {
		return nil, err
	}

	p.observer.OnEvent(progress.Event{
		Type:     progress.StageFinished,
		Stage:    stage,
		Done:     report.Rows,
		Total:    report.Rows,
		Duration: report.Duration,
	})
	return report, nil
}
