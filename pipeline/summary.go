package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/specimen/analysis"
	"github.com/RyanBlaney/specimen/features"
	"github.com/RyanBlaney/specimen/features/extractors"
	"github.com/RyanBlaney/specimen/preprocess"
)

// RunSummary describes one pipeline run
type RunSummary struct {
	RunID      string        `yaml:"run_id"`
	StartedAt  time.Time     `yaml:"started_at"`
	FinishedAt time.Time     `yaml:"finished_at"`
	Duration   time.Duration `yaml:"duration"`
	Stages     []Stage       `yaml:"stages"`
	Success    bool          `yaml:"success"`
	Error      string        `yaml:"error,omitempty"`

	Preprocess []*preprocess.Summary     `yaml:"preprocess,omitempty"`
	Extraction []*extractors.Summary     `yaml:"extraction,omitempty"`
	Aggregate  *features.AggregateResult `yaml:"aggregate,omitempty"`
	Analysis   *analysis.Report          `yaml:"analysis,omitempty"`
}

// WriteYAML encodes the summary as YAML
func (s *RunSummary) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// Save writes the summary to path, creating the directory if needed
func (s *RunSummary) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := s.WriteYAML(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write run summary: %w", err)
	}
	return f.Close()
}

// LoadSummary reads a summary written by Save
func LoadSummary(path string) (*RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s RunSummary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse run summary: %w", err)
	}
	return &s, nil
}
