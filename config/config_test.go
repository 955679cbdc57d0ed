package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/specimen/logging"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "specimen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), settings)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
preprocess:
  width: 128
  height: 96
  clahe: false
extraction:
  texture:
    points: 16
    radius: 2
analysis:
  pca_components: 3
  classification:
    models: [svm_rbf, LogisticRegression]
    test_size: 0.3
    seed: 7
store:
  enabled: true
  path: run.db
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", settings.Log.Level)
	assert.Equal(t, "json", settings.Log.Format)
	assert.Equal(t, 128, settings.Preprocess.Width)
	assert.Equal(t, 96, settings.Preprocess.Height)
	assert.False(t, settings.Preprocess.CLAHE)
	assert.Equal(t, 16, settings.Extraction.Texture.Points)
	assert.Equal(t, 2.0, settings.Extraction.Texture.Radius)
	assert.Equal(t, 3, settings.Analysis.PCAComponents)
	assert.Equal(t, []string{"svm_rbf", "LogisticRegression"}, settings.Analysis.Classification.Models)
	assert.Equal(t, 0.3, settings.Analysis.Classification.TestSize)
	assert.Equal(t, uint64(7), settings.Analysis.Classification.Seed)
	assert.Equal(t, 200, settings.Analysis.Classification.Trees)
	assert.True(t, settings.Store.Enabled)
	assert.Equal(t, "run.db", settings.Store.Path)

	// untouched keys keep their defaults
	defaults := Defaults()
	assert.Equal(t, defaults.Preprocess.RawDir, settings.Preprocess.RawDir)
	assert.Equal(t, defaults.Output, settings.Output)
	assert.Equal(t, defaults.Extraction.Spatial, settings.Extraction.Spatial)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("SPECIMEN_ANALYSIS_PCA_COMPONENTS", "4")
	t.Setenv("SPECIMEN_OUTPUT_DIR", "/tmp/features")
	t.Setenv("SPECIMEN_ANALYSIS_PLOTS", "false")
	t.Setenv("SPECIMEN_ANALYSIS_CLASSIFICATION_SEED", "11")

	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, settings.Analysis.PCAComponents)
	assert.Equal(t, "/tmp/features", settings.Output.Dir)
	assert.False(t, settings.Analysis.Plots)
	assert.Equal(t, uint64(11), settings.Analysis.Classification.Seed)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero width", "preprocess:\n  width: 0\n"},
		{"crop ratio", "preprocess:\n  crop_ratio: 1.5\n"},
		{"log level", "log:\n  level: loud\n"},
		{"log format", "log:\n  format: xml\n"},
		{"pca components", "analysis:\n  pca_components: 0\n"},
		{"workers", "extraction:\n  workers: 0\n"},
		{"window", "extraction:\n  frequency:\n    window: hanning\n"},
		{"unknown model", "analysis:\n  classification:\n    models: [knn]\n"},
		{"test size", "analysis:\n  classification:\n    test_size: 1\n"},
		{"no models", "analysis:\n  classification:\n    models: []\n"},
		{"store path", "store:\n  enabled: true\n  path: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestBindFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("log-level", "info", "")
	cmd.Flags().Int("components", 10, "")

	loader := NewLoader()
	require.NoError(t, loader.BindFlags(cmd, map[string]string{
		"log-level":  "log.level",
		"components": "analysis.pca_components",
	}))
	require.NoError(t, cmd.Flags().Parse([]string{"--log-level", "warn", "--components", "2"}))

	settings, err := loader.Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", settings.Log.Level)
	assert.Equal(t, 2, settings.Analysis.PCAComponents)
	assert.NotEmpty(t, loader.ConfigFile())

	assert.Error(t, loader.BindFlags(cmd, map[string]string{"missing": "log.level"}))
}

func TestNewLogger(t *testing.T) {
	settings := Defaults()
	settings.Log.Format = "json"
	logger, err := settings.NewLogger()
	require.NoError(t, err)
	_, ok := logger.(*logging.ZerologLogger)
	assert.True(t, ok)

	settings.Log.Level = "verbose"
	_, err = settings.NewLogger()
	assert.Error(t, err)
}
