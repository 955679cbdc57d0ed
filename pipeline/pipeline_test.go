package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/RyanBlaney/specimen/analysis"
	"github.com/RyanBlaney/specimen/features"
	"github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/internal/testimage"
	"github.com/RyanBlaney/specimen/logging"
	"github.com/RyanBlaney/specimen/metrics"
	"github.com/RyanBlaney/specimen/preprocess"
	"github.com/RyanBlaney/specimen/progress"
	"github.com/RyanBlaney/specimen/store"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(nil)
	goleak.VerifyTestMain(m)
}

// testOptions places every directory of a run under one temp dir
func testOptions(t *testing.T) Options {
	t.Helper()
	work := t.TempDir()

	pre := preprocess.DefaultConfig()
	pre.RawDir = filepath.Join(work, "raw")
	pre.CleanDir = filepath.Join(work, "processed", "clean")
	pre.CroppedDir = filepath.Join(work, "processed", "cropped")
	pre.ResizedDir = filepath.Join(work, "processed", "resized")
	pre.GrayscaleDir = filepath.Join(work, "processed", "grayscale")
	pre.EnhancedDir = filepath.Join(work, "processed", "enhanced")

	out := config.DefaultOutputConfig()
	out.Dir = filepath.Join(work, "features")

	an := config.DefaultAnalysisConfig()
	an.TablesDir = filepath.Join(work, "results", "tables")
	an.FiguresDir = filepath.Join(work, "results", "figures")

	return Options{
		Preprocess:  pre,
		Extraction:  config.DefaultExtractionConfig(),
		Output:      out,
		Analysis:    an,
		SummaryPath: filepath.Join(work, "results", "run_summary.yaml"),
	}
}

var extractAndAnalyze = []Stage{StageSpatial, StageFrequency, StageTexture, StageStats, StageCorrelation, StagePCA}

func TestRunExtractionAndAnalysis(t *testing.T) {
	opts := testOptions(t)
	opts.FeatureDir = testimage.SampleCorpus(t)
	recorder := &progress.Recorder{}
	opts.Observer = recorder

	summary, err := New(opts).Run(context.Background(), extractAndAnalyze)
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.NotEmpty(t, summary.RunID)

	// aggregation is implied by the analysis stages
	assert.Equal(t, []Stage{StageSpatial, StageFrequency, StageTexture, StageAggregate, StageStats, StageCorrelation, StagePCA}, summary.Stages)

	require.Len(t, summary.Extraction, 3)
	for i, s := range summary.Extraction {
		assert.Equal(t, string(extractAndAnalyze[i]), s.Extractor)
		assert.Equal(t, 3, s.Processed)
		assert.Equal(t, 1, s.Skipped)
	}

	require.NotNil(t, summary.Aggregate)
	assert.Equal(t, 3, summary.Aggregate.MergedRows)

	merged, err := features.LoadTable(opts.Output.MergedPath(), features.MergedSchema)
	require.NoError(t, err)
	assert.Equal(t, []features.Key{
		{Filename: "a1.jpg", Species: "A"},
		{Filename: "a2.JPG", Species: "A"},
		{Filename: "b1.png", Species: "B"},
	}, merged.Keys())

	require.NotNil(t, summary.Analysis)
	assert.Equal(t, 2, summary.Analysis.Species)
	assert.Equal(t, 3, summary.Analysis.Components)
	for _, name := range []string{analysis.StatisticsFile, analysis.CorrelationFile, analysis.ProjectionsFile, analysis.VarianceFile} {
		assert.FileExists(t, filepath.Join(opts.Analysis.TablesDir, name))
	}
	for _, name := range []string{analysis.HeatmapFile, analysis.ProjectionPlotFile, analysis.VariancePlotFile} {
		assert.FileExists(t, filepath.Join(opts.Analysis.FiguresDir, name))
	}

	assert.Equal(t, 9, recorder.Count(progress.ItemProcessed))
	assert.Equal(t, 3, recorder.Count(progress.ItemSkipped))

	saved, err := LoadSummary(opts.SummaryPath)
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, saved.RunID)
	assert.True(t, saved.Success)
	assert.Equal(t, summary.Stages, saved.Stages)
	require.Len(t, saved.Extraction, 3)
	assert.Equal(t, 3, saved.Extraction[0].Processed)
}

func TestRunIsIdempotent(t *testing.T) {
	opts := testOptions(t)
	opts.FeatureDir = testimage.SampleCorpus(t)
	opts.Analysis.Plots = false

	read := func() map[string][]byte {
		files := map[string][]byte{}
		for _, path := range []string{
			opts.Output.SpatialPath(),
			opts.Output.FrequencyPath(),
			opts.Output.TexturePath(),
			opts.Output.MergedPath(),
			filepath.Join(opts.Analysis.TablesDir, analysis.StatisticsFile),
			filepath.Join(opts.Analysis.TablesDir, analysis.CorrelationFile),
		} {
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			files[path] = data
		}
		return files
	}

	_, err := New(opts).Run(context.Background(), extractAndAnalyze)
	require.NoError(t, err)
	first := read()

	_, err = New(opts).Run(context.Background(), extractAndAnalyze)
	require.NoError(t, err)
	assert.Equal(t, first, read())
}

func TestRunFullPipeline(t *testing.T) {
	opts := testOptions(t)
	testimage.WriteFiles(t, opts.Preprocess.RawDir, map[string][]byte{
		"heron/h1.png":     testimage.PNG(t, testimage.Gradient(260, 240)),
		"heron/h2.jpg":     testimage.JPEG(t, testimage.Checker(230, 210, 12, 20, 230)),
		"heron/tiny.png":   testimage.PNG(t, testimage.Gradient(40, 40)),
		"owl/o1.png":       testimage.PNG(t, testimage.Colorful(240, 220)),
		"owl/corrupt.jpeg": testimage.Corrupt(),
	})

	summary, err := New(opts).Run(context.Background(), AllStages)
	require.NoError(t, err)
	assert.Equal(t, AllStages, summary.Stages)

	require.Len(t, summary.Preprocess, 5)
	assert.Equal(t, 3, summary.Preprocess[0].Written)
	assert.Len(t, summary.Preprocess[0].Rejected, 2)
	assert.FileExists(t, filepath.Join(opts.Preprocess.CleanDir, preprocess.RejectedLogFile))

	assert.Equal(t, 3, summary.Aggregate.MergedRows)
	assert.Equal(t, 2, summary.Analysis.Species)

	// a single owl cannot be split into train and test rows
	assert.Equal(t, []string{"classification"}, summary.Analysis.Skipped)
}

func TestRunClassifySkipsSmallCorpus(t *testing.T) {
	opts := testOptions(t)
	opts.FeatureDir = testimage.SampleCorpus(t)

	summary, err := New(opts).Run(context.Background(), []Stage{StageSpatial, StageFrequency, StageTexture, StageClassify})
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, []Stage{StageSpatial, StageFrequency, StageTexture, StageAggregate, StageClassify}, summary.Stages)

	require.NotNil(t, summary.Analysis)
	assert.Equal(t, []string{"classification"}, summary.Analysis.Skipped)
	assert.Empty(t, summary.Analysis.Models)
	assert.NoFileExists(t, filepath.Join(opts.Analysis.TablesDir, analysis.ComparisonFile))
}

func TestRunUnknownWindowFails(t *testing.T) {
	opts := testOptions(t)
	opts.FeatureDir = testimage.SampleCorpus(t)
	opts.Extraction.Frequency.Window = "hanning"

	summary, err := New(opts).Run(context.Background(), []Stage{StageSpatial, StageFrequency})
	require.Error(t, err)
	assert.ErrorContains(t, err, "frequency extraction failed")
	assert.ErrorContains(t, err, "hanning")
	assert.False(t, summary.Success)
	assert.NoFileExists(t, opts.Output.FrequencyPath())
}

func TestRunMissingTablesIsFatal(t *testing.T) {
	opts := testOptions(t)

	summary, err := New(opts).Run(context.Background(), []Stage{StageAggregate})
	require.Error(t, err)

	var loadErr *features.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NoFileExists(t, opts.Output.MergedPath())

	require.NotNil(t, summary)
	assert.False(t, summary.Success)
	assert.NotEmpty(t, summary.Error)

	saved, err := LoadSummary(opts.SummaryPath)
	require.NoError(t, err)
	assert.False(t, saved.Success)
}

func TestRunWithStoreAndMetrics(t *testing.T) {
	opts := testOptions(t)
	opts.FeatureDir = testimage.SampleCorpus(t)
	opts.Analysis.Plots = false
	opts.MetricsPath = filepath.Join(t.TempDir(), "specimen.prom")

	db, err := store.Open(filepath.Join(t.TempDir(), "features.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	opts.Store = db

	m, err := metrics.NewPipelineMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	opts.Metrics = m

	summary, err := New(opts).Run(context.Background(), []Stage{StageSpatial, StageFrequency, StageTexture, StageAggregate})
	require.NoError(t, err)
	assert.Nil(t, summary.Analysis)

	stored, err := db.Features(context.Background(), summary.RunID)
	require.NoError(t, err)
	merged, err := features.LoadTable(opts.Output.MergedPath(), features.MergedSchema)
	require.NoError(t, err)
	assert.Equal(t, merged.Rows, stored.Rows)

	for _, s := range summary.Extraction {
		assert.Equal(t, float64(s.Processed), testutil.ToFloat64(m.ImagesProcessed.WithLabelValues(s.Extractor)))
		assert.Equal(t, float64(s.Skipped), testutil.ToFloat64(m.ImagesSkipped.WithLabelValues(s.Extractor)))
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(m.MergedRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LastRunSuccess))
	assert.FileExists(t, opts.MetricsPath)
}

func TestRunCancelled(t *testing.T) {
	opts := testOptions(t)
	opts.FeatureDir = testimage.SampleCorpus(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := New(opts).Run(ctx, extractAndAnalyze)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, summary.Success)
}

func TestParseStages(t *testing.T) {
	stages, err := ParseStages(nil)
	require.NoError(t, err)
	assert.Equal(t, AllStages, stages)

	stages, err = ParseStages([]string{"fft", "LBP", "correlation", "merge"})
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageFrequency, StageTexture, StageCorrelation, StageAggregate}, stages)

	stages, err = ParseStages([]string{"clean", "all"})
	require.NoError(t, err)
	assert.Equal(t, AllStages, stages)

	stages, err = ParseStages([]string{"classification", "Models", "pca"})
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageClassify, StageClassify, StagePCA}, stages)

	_, err = ParseStages([]string{"segment"})
	assert.ErrorContains(t, err, "unknown stage")
}

func TestStageOrdering(t *testing.T) {
	set := newStageSet([]Stage{StagePCA, StageClean, StageTexture})
	assert.Equal(t, []Stage{StageClean, StageTexture, StageAggregate, StagePCA}, set.ordered())
	assert.Equal(t, []preprocess.Stage{preprocess.StageClean}, set.preprocessing())
	assert.True(t, set.aggregation())

	set = newStageSet([]Stage{StageClassify})
	assert.True(t, set.analysis())
	assert.Equal(t, []Stage{StageAggregate, StageClassify}, set.ordered())

	set = newStageSet([]Stage{StageSpatial})
	assert.False(t, set.aggregation())
	assert.Equal(t, []Stage{StageSpatial}, set.ordered())
}
