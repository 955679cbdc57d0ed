package extractors

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/RyanBlaney/specimen/corpus"
	"github.com/RyanBlaney/specimen/features"
	"github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/internal/testimage"
	"github.com/RyanBlaney/specimen/logging"
	"github.com/RyanBlaney/specimen/progress"
)

func TestMain(m *testing.M) {
	logging.SetGlobalLogger(nil)
	goleak.VerifyTestMain(m)
}

func sampleCorpus(t *testing.T) *corpus.FSCorpus {
	return corpus.NewDirCorpus(testimage.SampleCorpus(t))
}

func extract[R features.Record](t *testing.T, ex FeatureExtractor[R], img *image.Gray) R {
	t.Helper()
	rec, err := ex.Extract(features.Key{}, img)
	require.NoError(t, err)
	return rec
}

func frequencyExtractor(t *testing.T, cfg *config.FrequencyConfig) *FrequencyExtractor {
	t.Helper()
	ex, err := NewFrequencyExtractor(cfg)
	require.NoError(t, err)
	return ex
}

func TestSpatialUniformImage(t *testing.T) {
	rec := extract(t, NewSpatialExtractor(nil), testimage.Uniform(24, 24, 90))

	assert.Equal(t, 90.0, rec.MeanIntensity)
	assert.Equal(t, 0.0, rec.Contrast)
	assert.Equal(t, 0.0, rec.Entropy)
	assert.Equal(t, 0.0, rec.EdgeDensity)
}

func TestSpatialTexturedImage(t *testing.T) {
	rec := extract(t, NewSpatialExtractor(nil), testimage.Checker(32, 32, 8, 0, 255))

	assert.InDelta(t, 127.5, rec.MeanIntensity, 1e-9)
	assert.InDelta(t, 127.5, rec.Contrast, 1e-9)
	assert.InDelta(t, 1.0, rec.Entropy, 1e-12)
	assert.Greater(t, rec.EdgeDensity, 0.0)
	assert.Less(t, rec.EdgeDensity, 1.0)
}

func TestFrequencyUniformImage(t *testing.T) {
	rec := extract(t, frequencyExtractor(t, nil), testimage.Uniform(32, 32, 100))

	total := rec.SpectralEnergy
	assert.InDelta(t, 100.0*100*1024*1024, total, 1e-3*total)
	assert.InDelta(t, 1.0, rec.LowFreqEnergy/total, 1e-9)
	assert.Less(t, rec.HighFreqEnergy/total, 1e-12)
	assert.InDelta(t, 0.0, rec.HighLowRatio, 1e-9)
	assert.Equal(t, 0.0, rec.DominantFrequency)
}

func TestFrequencyBlackImage(t *testing.T) {
	rec := extract(t, frequencyExtractor(t, nil), testimage.Uniform(16, 16, 0))

	assert.Equal(t, 0.0, rec.SpectralEnergy)
	assert.Equal(t, 0.0, rec.HighLowRatio)
}

func TestFrequencyFinePatternIsHighFrequency(t *testing.T) {
	rec := extract(t, frequencyExtractor(t, nil), testimage.Checker(32, 32, 1, 0, 255))

	assert.Greater(t, rec.HighFreqEnergy, 0.0)
	assert.Greater(t, rec.HighLowRatio, 0.5)
	assert.GreaterOrEqual(t, rec.DominantFrequency, 0.0)
	assert.LessOrEqual(t, rec.DominantFrequency, 1.0)
}

func TestFrequencyWindowTapersBorders(t *testing.T) {
	cfg := config.DefaultExtractionConfig().Frequency
	img := testimage.Uniform(32, 32, 100)
	plain := extract(t, frequencyExtractor(t, &cfg), img)

	cfg.Window = "hann"
	windowed := extract(t, frequencyExtractor(t, &cfg), img)

	assert.Less(t, windowed.SpectralEnergy, plain.SpectralEnergy)
	assert.Greater(t, windowed.LowFreqEnergy, windowed.HighFreqEnergy)
	assert.Equal(t, 0.0, windowed.DominantFrequency)
}

func TestFrequencyUnknownWindowRejected(t *testing.T) {
	cfg := config.DefaultExtractionConfig().Frequency
	cfg.Window = "hanning"

	ex, err := NewFrequencyExtractor(&cfg)
	assert.Nil(t, ex)
	assert.ErrorContains(t, err, "hanning")

	extraction := config.DefaultExtractionConfig()
	extraction.Frequency.Window = "hanning"
	path := filepath.Join(t.TempDir(), "frequency.csv")

	_, err = NewExtractorFactory(extraction).ExtractToFile(context.Background(), KindFrequency, sampleCorpus(t), path, nil)
	assert.ErrorContains(t, err, "hanning")
	assert.NoFileExists(t, path)
}

func TestExtractorsLogPerImage(t *testing.T) {
	var buf bytes.Buffer
	logging.SetGlobalLogger(logging.NewJSONLogger(&buf, logging.DebugLevel))
	t.Cleanup(func() { logging.SetGlobalLogger(nil) })

	key := features.Key{Filename: "a1.jpg", Species: "A"}
	img := testimage.Checker(16, 16, 4, 0, 255)

	_, err := NewSpatialExtractor(nil).Extract(key, img)
	require.NoError(t, err)
	_, err = NewTextureExtractor(nil).Extract(key, img)
	require.NoError(t, err)

	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)

	assert.Equal(t, "spatial_feature_extractor", lines[0]["component"])
	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, key.String(), lines[0]["image"])
	assert.EqualValues(t, 100, lines[0]["canny_low"])

	assert.Equal(t, "texture_feature_extractor", lines[1]["component"])
	assert.Equal(t, key.String(), lines[1]["image"])
	assert.EqualValues(t, 8, lines[1]["points"])
}

func TestTextureNormalization(t *testing.T) {
	rec := extract(t, NewTextureExtractor(nil), testimage.Gradient(40, 30))
	assert.Greater(t, rec.LBPDomBinRatio, 0.0)
	assert.LessOrEqual(t, rec.LBPDomBinRatio, 1.0)
	assert.GreaterOrEqual(t, rec.LBPEntropy, 0.0)
	assert.GreaterOrEqual(t, rec.LBPUniformRatio, 0.0)
	assert.LessOrEqual(t, rec.LBPUniformRatio, 1.0+1e-9)
}

func TestRunSkipsCorruptImages(t *testing.T) {
	c := sampleCorpus(t)
	recorder := &progress.Recorder{}

	table, summary, err := Run(context.Background(), c, NewSpatialExtractor(nil), RunOptions{Workers: 3, Observer: recorder})
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 4, summary.Images)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Skips, 1)
	assert.Equal(t, features.Key{Filename: "broken.jpg", Species: "A"}, summary.Skips[0].Key)

	for _, k := range table.Keys() {
		assert.NotEqual(t, "broken.jpg", k.Filename)
	}

	assert.Equal(t, 3, recorder.Count(progress.ItemProcessed))
	assert.Equal(t, 1, recorder.Count(progress.ItemSkipped))
	assert.Equal(t, 2, recorder.Count(progress.SpeciesStarted))
	assert.Equal(t, 1, recorder.Count(progress.StageFinished))
}

func TestRunOrderIndependentOfWorkers(t *testing.T) {
	c := sampleCorpus(t)

	sequential, _, err := Run(context.Background(), c, NewTextureExtractor(nil), RunOptions{Workers: 1})
	require.NoError(t, err)
	parallel, _, err := Run(context.Background(), c, NewTextureExtractor(nil), RunOptions{Workers: 8})
	require.NoError(t, err)

	assert.Equal(t, sequential.Rows, parallel.Rows)
}

func TestRunEmptyCorpus(t *testing.T) {
	c := corpus.NewDirCorpus(filepath.Join(t.TempDir(), "missing"))

	table, summary, err := Run(context.Background(), c, frequencyExtractor(t, nil), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 0, summary.Images)
}

func TestRunInMemoryCorpus(t *testing.T) {
	fsys := fstest.MapFS{
		"owl/a.png":     {Data: testimage.PNG(t, testimage.Gradient(20, 20))},
		"owl/bad.png":   {Data: []byte("garbage")},
		"heron/b.jpeg":  {Data: testimage.JPEG(t, testimage.Checker(20, 20, 2, 10, 240))},
		"heron/c.webp":  {Data: []byte("ignored")},
		"stray-file.md": {Data: []byte("ignored")},
	}

	table, summary, err := Run(context.Background(), corpus.NewFSCorpus(fsys), NewTextureExtractor(nil), RunOptions{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, []features.Key{
		{Filename: "b.jpeg", Species: "heron"},
		{Filename: "a.png", Species: "owl"},
	}, table.Keys())
	assert.Equal(t, 1, summary.Skipped)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Run(ctx, sampleCorpus(t), NewSpatialExtractor(nil), RunOptions{Workers: 2})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractToFileIsIdempotent(t *testing.T) {
	c := sampleCorpus(t)
	factory := NewExtractorFactory(config.DefaultExtractionConfig())
	dir := t.TempDir()

	for _, kind := range AllKinds {
		t.Run(string(kind), func(t *testing.T) {
			path := filepath.Join(dir, string(kind)+".csv")

			summary, err := factory.ExtractToFile(context.Background(), kind, c, path, nil)
			require.NoError(t, err)
			assert.Equal(t, 3, summary.Processed)
			assert.Equal(t, path, summary.Output)

			first, err := os.ReadFile(path)
			require.NoError(t, err)

			_, err = factory.ExtractToFile(context.Background(), kind, c, path, nil)
			require.NoError(t, err)
			second, err := os.ReadFile(path)
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}

func TestExtractToFileUnknownKind(t *testing.T) {
	_, err := NewExtractorFactory(nil).ExtractToFile(context.Background(), Kind("colour"), sampleCorpus(t), filepath.Join(t.TempDir(), "x.csv"), nil)
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"spatial", KindSpatial},
		{"FFT", KindFrequency},
		{"frequency", KindFrequency},
		{"lbp", KindTexture},
		{" texture ", KindTexture},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseKind("colour")
	assert.Error(t, err)
}
