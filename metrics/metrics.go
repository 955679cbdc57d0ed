// Package metrics exposes pipeline progress as Prometheus metrics. Runs are
// batch jobs, so metrics are written to a node exporter textfile rather
// than served.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/RyanBlaney/specimen/progress"
)

// PipelineMetrics contains all Prometheus metrics of a pipeline run
type PipelineMetrics struct {
	ImagesProcessed *prometheus.CounterVec
	ImagesSkipped   *prometheus.CounterVec
	StageDuration   *prometheus.GaugeVec
	StagesCompleted prometheus.Counter
	MergedRows      prometheus.Gauge
	LastRunSuccess  prometheus.Gauge
	LastRunTime     prometheus.Gauge
	registry        *prometheus.Registry
}

// NewPipelineMetrics creates the pipeline metrics and registers them with
// registry
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.ImagesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "specimen_images_processed_total",
		Help: "Total number of images a stage processed successfully.",
	}, []string{"stage"})

	m.ImagesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "specimen_images_skipped_total",
		Help: "Total number of images a stage skipped or rejected.",
	}, []string{"stage"})

	m.StageDuration = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "specimen_stage_duration_seconds",
		Help: "Wall time of the last run of each stage in seconds.",
	}, []string{"stage"})

	m.StagesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "specimen_stages_completed_total",
		Help: "Total number of stages that finished.",
	})

	m.MergedRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "specimen_merged_rows",
		Help: "Number of rows in the merged feature table.",
	})

	m.LastRunSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "specimen_last_run_success",
		Help: "1 if the last pipeline run succeeded, 0 otherwise.",
	})

	m.LastRunTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "specimen_last_run_timestamp_seconds",
		Help: "Unix time the last pipeline run finished.",
	})
}

// OnEvent implements progress.Observer
func (m *PipelineMetrics) OnEvent(e progress.Event) {
	switch e.Type {
	case progress.ItemProcessed:
		m.ImagesProcessed.WithLabelValues(e.Stage).Inc()
	case progress.ItemSkipped:
		m.ImagesSkipped.WithLabelValues(e.Stage).Inc()
	case progress.StageFinished:
		m.StageDuration.WithLabelValues(e.Stage).Set(e.Duration.Seconds())
		m.StagesCompleted.Inc()
	}
}

// SetMergedRows records the size of the merged table
func (m *PipelineMetrics) SetMergedRows(rows int) {
	m.MergedRows.Set(float64(rows))
}

// RecordRun marks the end of a pipeline run
func (m *PipelineMetrics) RecordRun(success bool) {
	if success {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
	m.LastRunTime.SetToCurrentTime()
}

// WriteTextfile writes every registered metric to path in the text
// exposition format
func (m *PipelineMetrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ImagesProcessed.Collect(ch)
	m.ImagesSkipped.Collect(ch)
	m.StageDuration.Collect(ch)
	ch <- m.StagesCompleted
	ch <- m.MergedRows
	ch <- m.LastRunSuccess
	ch <- m.LastRunTime
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ImagesProcessed.Describe(ch)
	m.ImagesSkipped.Describe(ch)
	m.StageDuration.Describe(ch)
	ch <- m.StagesCompleted.Desc()
	ch <- m.MergedRows.Desc()
	ch <- m.LastRunSuccess.Desc()
	ch <- m.LastRunTime.Desc()
}

var _ progress.Observer = (*PipelineMetrics)(nil)
