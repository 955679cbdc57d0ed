// Package preprocess prepares a raw species image collection for feature
// extraction: cleaning, cropping, resizing, grayscale conversion and
// contrast enhancement, each stage writing a mirrored directory tree.
package preprocess

import (
	"context"
	"path/filepath"

	"github.com/RyanBlaney/specimen/corpus"
	"github.com/RyanBlaney/specimen/logging"
	"github.com/RyanBlaney/specimen/progress"
)

// Preprocessor runs the configured stages over on-disk directories
type Preprocessor struct {
	config   *Config
	observer progress.Observer
	logger   logging.Logger
}

// New creates a preprocessor. A nil observer discards progress events.
func New(cfg *Config, observer progress.Observer) *Preprocessor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if observer == nil {
		observer = progress.Discard
	}
	return &Preprocessor{
		config:   cfg,
		observer: observer,
		logger: logging.WithFields(logging.Fields{
			"component": "preprocessor",
		}),
	}
}

// Transform returns the image transform of a stage
func (p *Preprocessor) Transform(stage Stage) (Transform, error) {
	switch stage {
	case StageClean:
		return NewValidator(p.config.MinWidth, p.config.MinHeight, p.config.MinStdDev), nil
	case StageCrop:
		return NewCropper(p.config.CropRatio), nil
	case StageResize:
		return NewResizer(p.config.Width, p.config.Height), nil
	case StageGrayscale:
		return Grayscale, nil
	case StageEnhance:
		return NewEnhancer(p.config), nil
	default:
		_, _, err := p.config.Dirs(stage)
		return nil, err
	}
}

// Run executes one stage. The cleaning stage also writes the list of
// rejected images into its output directory.
func (p *Preprocessor) Run(ctx context.Context, stage Stage) (*Summary, error) {
	in, out, err := p.config.Dirs(stage)
	if err != nil {
		return nil, err
	}
	t, err := p.Transform(stage)
	if err != nil {
		return nil, err
	}

	logger := p.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Run",
		"stage":    stage,
	})
	logger.Info("Starting preprocessing stage", logging.Fields{
		"input":  in,
		"output": out,
	})

	summary, err := Run(ctx, corpus.NewDirCorpus(in), t, RunOptions{
		Stage:    stage,
		Output:   out,
		Workers:  p.config.Workers,
		Observer: p.observer,
	})
	if err != nil {
		logger.Error(err, "Preprocessing stage failed")
		return nil, err
	}
	summary.Input = in

	if stage == StageClean {
		logPath := filepath.Join(out, RejectedLogFile)
		if err := WriteRejections(logPath, summary.Rejected); err != nil {
			return nil, err
		}
		logger.Info("Rejected images logged", logging.Fields{
			"rejected": len(summary.Rejected),
			"log":      logPath,
		})
	}

	logger.Info("Preprocessing stage completed", logging.Fields{
		"images":   summary.Images,
		"written":  summary.Written,
		"rejected": len(summary.Rejected),
		"duration": summary.Duration,
	})
	return summary, nil
}

// RunStages executes the given stages in pipeline order, whatever order
// they are listed in
func (p *Preprocessor) RunStages(ctx context.Context, stages []Stage) ([]*Summary, error) {
	enabled := make(map[Stage]bool, len(stages))
	for _, s := range stages {
		if _, _, err := p.config.Dirs(s); err != nil {
			return nil, err
		}
		enabled[s] = true
	}

	var summaries []*Summary
	for _, s := range AllStages {
		if !enabled[s] {
			continue
		}
		summary, err := p.Run(ctx, s)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
