package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/specimen/progress"
)

func TestOnEvent(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := NewPipelineMetrics(registry)
	require.NoError(t, err)

	events := []progress.Event{
		{Type: progress.StageStarted, Stage: "spatial", Total: 3},
		{Type: progress.SpeciesStarted, Stage: "spatial", Species: "A"},
		{Type: progress.ItemProcessed, Stage: "spatial", Item: "a.jpg"},
		{Type: progress.ItemProcessed, Stage: "spatial", Item: "b.jpg"},
		{Type: progress.ItemSkipped, Stage: "spatial", Item: "c.jpg", Reason: "corrupt"},
		{Type: progress.ItemSkipped, Stage: "clean", Item: "d.jpg", Reason: "Too small (10x10)"},
		{Type: progress.StageFinished, Stage: "spatial", Duration: 1500 * time.Millisecond},
	}
	for _, e := range events {
		m.OnEvent(e)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ImagesProcessed.WithLabelValues("spatial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImagesSkipped.WithLabelValues("spatial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ImagesSkipped.WithLabelValues("clean")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.StageDuration.WithLabelValues("spatial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StagesCompleted))
}

func TestRecordRun(t *testing.T) {
	m, err := NewPipelineMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.SetMergedRows(42)
	m.RecordRun(true)
	assert.Equal(t, 42.0, testutil.ToFloat64(m.MergedRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LastRunSuccess))
	assert.Greater(t, testutil.ToFloat64(m.LastRunTime), 0.0)

	m.RecordRun(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastRunSuccess))
}

func TestDoubleRegistrationFails(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewPipelineMetrics(registry)
	require.NoError(t, err)

	_, err = NewPipelineMetrics(registry)
	assert.Error(t, err)
}

func TestWriteTextfile(t *testing.T) {
	m, err := NewPipelineMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	m.OnEvent(progress.Event{Type: progress.ItemProcessed, Stage: "texture"})

	path := filepath.Join(t.TempDir(), "metrics", "specimen.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `specimen_images_processed_total{stage="texture"} 1`)

	err = testutil.GatherAndCompare(m.registry, strings.NewReader(`
# HELP specimen_merged_rows Number of rows in the merged feature table.
# TYPE specimen_merged_rows gauge
specimen_merged_rows 0
`), "specimen_merged_rows")
	assert.NoError(t, err)
}
