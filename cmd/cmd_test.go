package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/specimen/analysis"
	"github.com/RyanBlaney/specimen/internal/testimage"
	"github.com/RyanBlaney/specimen/logging"
	"github.com/RyanBlaney/specimen/pipeline"
)

// execute runs the CLI with a config file rooted in work
func execute(t *testing.T, work string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { logging.SetGlobalLogger(nil) })

	configPath := filepath.Join(work, "specimen.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		content := fmt.Sprintf(`
log:
  level: error
output:
  dir: %q
analysis:
  tables_dir: %q
  figures_dir: %q
store:
  path: %q
summary_path: %q
`,
			filepath.Join(work, "features"),
			filepath.Join(work, "tables"),
			filepath.Join(work, "figures"),
			filepath.Join(work, "specimen.db"),
			filepath.Join(work, "run_summary.yaml"),
		)
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	}

	root := RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", configPath}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExtractAndAnalyze(t *testing.T) {
	work := t.TempDir()
	corpusDir := testimage.SampleCorpus(t)

	out, err := execute(t, work, "extract", "--input", corpusDir)
	require.NoError(t, err)
	assert.Contains(t, out, "spatial")
	assert.Contains(t, out, "texture")
	assert.FileExists(t, filepath.Join(work, "features", "features_lbp.csv"))

	out, err = execute(t, work, "analyze", "stats", "pca", "--plots=false", "--components", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "aggregate")
	assert.FileExists(t, filepath.Join(work, "features", "features_all.csv"))
	assert.FileExists(t, filepath.Join(work, "tables", analysis.StatisticsFile))
	assert.FileExists(t, filepath.Join(work, "tables", analysis.VarianceFile))
	assert.NoFileExists(t, filepath.Join(work, "tables", analysis.CorrelationFile))
	assert.NoDirExists(t, filepath.Join(work, "figures"))

	summary, err := pipeline.LoadSummary(filepath.Join(work, "run_summary.yaml"))
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 2, summary.Analysis.Components)
}

func TestRunWithStoreAndHistory(t *testing.T) {
	work := t.TempDir()
	corpusDir := testimage.SampleCorpus(t)

	out, err := execute(t, work, "run", "spatial", "fft", "lbp", "merge", "--input", corpusDir, "--store")
	require.NoError(t, err)
	assert.Contains(t, out, ": ok in")

	summary, err := pipeline.LoadSummary(filepath.Join(work, "run_summary.yaml"))
	require.NoError(t, err)

	out, err = execute(t, work, "history")
	require.NoError(t, err)
	assert.Contains(t, out, summary.RunID)

	out, err = execute(t, work, "history", summary.RunID)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"A", "2"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"B", "1"}, strings.Fields(lines[1]))
}

func TestAnalyzeClassifySmallCorpus(t *testing.T) {
	work := t.TempDir()
	corpusDir := testimage.SampleCorpus(t)

	_, err := execute(t, work, "extract", "--input", corpusDir)
	require.NoError(t, err)

	out, err := execute(t, work, "analyze", "classify", "--models", "SVM_RBF", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "classification skipped")
	assert.NoFileExists(t, filepath.Join(work, "tables", analysis.ComparisonFile))

	_, err = execute(t, work, "analyze", "classify", "--models", "knn")
	assert.ErrorContains(t, err, "unknown model")
}

func TestAggregateWithoutTablesFails(t *testing.T) {
	work := t.TempDir()

	out, err := execute(t, work, "aggregate")
	require.Error(t, err)
	assert.Contains(t, out, "failed")
}

func TestUnknownStage(t *testing.T) {
	work := t.TempDir()

	_, err := execute(t, work, "run", "segment")
	assert.ErrorContains(t, err, "unknown stage")

	_, err = execute(t, work, "analyze", "clean")
	assert.ErrorContains(t, err, "not an analysis stage")

	_, err = execute(t, work, "extract", "sift")
	assert.ErrorContains(t, err, "unknown extractor")
}

func TestInvalidConfig(t *testing.T) {
	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, "specimen.yaml"), []byte("preprocess:\n  width: -1\n"), 0o644))

	_, err := execute(t, work, "aggregate")
	assert.ErrorContains(t, err, "invalid configuration")
}
