package extractors

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/specimen/corpus"
	"github.com/RyanBlaney/specimen/features"
	"github.com/RyanBlaney/specimen/features/config"
	"github.com/RyanBlaney/specimen/logging"
	"github.com/RyanBlaney/specimen/progress"
)

// FeatureExtractor computes one descriptor record per grayscale image
type FeatureExtractor[R features.Record] interface {
	Extract(key features.Key, img *image.Gray) (R, error)
	GetSchema() features.Schema[R]
	GetName() string
}

// Skip records why an image produced no row
type Skip struct {
	Key    features.Key `json:"key" yaml:"key"`
	Reason string       `json:"reason" yaml:"reason"`
}

// Outcome is the per-image result of an extractor: a record, or a skip
type Outcome[R features.Record] struct {
	Record R
	Skip   *Skip
}

// Skipped reports whether the image was dropped
func (o Outcome[R]) Skipped() bool {
	return o.Skip != nil
}

// Summary describes one extractor run
type Summary struct {
	Extractor string        `json:"extractor" yaml:"extractor"`
	Images    int           `json:"images" yaml:"images"`
	Processed int           `json:"processed" yaml:"processed"`
	Skipped   int           `json:"skipped" yaml:"skipped"`
	Skips     []Skip        `json:"skips,omitempty" yaml:"skips,omitempty"`
	Output    string        `json:"output,omitempty" yaml:"output,omitempty"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// RunOptions controls how an extractor walks a corpus
type RunOptions struct {
	Workers  int
	Observer progress.Observer
}

// Process decodes one image and runs the extractor on it. Decode and
// extraction failures become a Skip outcome.
func Process[R features.Record](c corpus.Corpus, ex FeatureExtractor[R], item corpus.Item) Outcome[R] {
	key := features.Key{Filename: item.Name, Species: item.Species}

	img, err := corpus.LoadGray(c, item.Species, item.Name)
	if err != nil {
		return Outcome[R]{Skip: &Skip{Key: key, Reason: err.Error()}}
	}
	if img.Bounds().Empty() {
		return Outcome[R]{Skip: &Skip{Key: key, Reason: "empty image"}}
	}

	record, err := ex.Extract(key, img)
	if err != nil {
		return Outcome[R]{Skip: &Skip{Key: key, Reason: err.Error()}}
	}
	return Outcome[R]{Record: record}
}

// Run extracts every image of the corpus. Images are processed by up to
// opts.Workers goroutines, but rows are emitted in enumeration order, so the
// table is identical to a sequential run.
func Run[R features.Record](ctx context.Context, c corpus.Corpus, ex FeatureExtractor[R], opts RunOptions) (*features.Table[R], *Summary, error) {
	start := time.Now()
	observer := opts.Observer
	if observer == nil {
		observer = progress.Discard
	}
	workers := max(opts.Workers, 1)
	name := ex.GetName()

	items, err := corpus.List(c)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to enumerate corpus: %w", err)
	}

	observer.OnEvent(progress.Event{Type: progress.StageStarted, Stage: name, Total: len(items)})

	outcomes := make([]Outcome[R], len(items))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	species := ""
schedule:
	for i, item := range items {
		select {
		case <-gctx.Done():
			break schedule
		default:
		}

		if item.Species != species {
			species = item.Species
			observer.OnEvent(progress.Event{Type: progress.SpeciesStarted, Stage: name, Species: species})
		}

		g.Go(func() error {
			outcome := Process(c, ex, item)
			outcomes[i] = outcome

			event := progress.Event{
				Type:    progress.ItemProcessed,
				Stage:   name,
				Species: item.Species,
				Item:    item.Name,
				Done:    int(done.Add(1)),
				Total:   len(items),
			}
			if outcome.Skipped() {
				event.Type = progress.ItemSkipped
				event.Reason = outcome.Skip.Reason
			}
			observer.OnEvent(event)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	table := features.NewTable(ex.GetSchema(), len(items))
	summary := &Summary{Extractor: name, Images: len(items)}
	for _, o := range outcomes {
		if o.Skipped() {
			summary.Skipped++
			summary.Skips = append(summary.Skips, *o.Skip)
			continue
		}
		table.Append(o.Record)
		summary.Processed++
	}
	summary.Duration = time.Since(start)

	observer.OnEvent(progress.Event{
		Type:     progress.StageFinished,
		Stage:    name,
		Done:     summary.Processed,
		Total:    summary.Images,
		Duration: summary.Duration,
	})

	return table, summary, nil
}

// Kind names one of the descriptor extractors
type Kind string

const (
	KindSpatial   Kind = "spatial"
	KindFrequency Kind = "frequency"
	KindTexture   Kind = "texture"
)

// AllKinds lists the extractors in pipeline order
var AllKinds = []Kind{KindSpatial, KindFrequency, KindTexture}

// ParseKind resolves an extractor name. "fft" and "lbp" are accepted aliases.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "spatial":
		return KindSpatial, nil
	case "frequency", "fft":
		return KindFrequency, nil
	case "texture", "lbp":
		return KindTexture, nil
	default:
		return "", fmt.Errorf("unknown extractor %q", name)
	}
}

// ExtractorFactory creates extractors and runs them against a corpus
type ExtractorFactory struct {
	config *config.ExtractionConfig
	logger logging.Logger
}

// NewExtractorFactory creates a new extractor factory
func NewExtractorFactory(cfg *config.ExtractionConfig) *ExtractorFactory {
	if cfg == nil {
		cfg = config.DefaultExtractionConfig()
	}
	return &ExtractorFactory{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor_factory",
		}),
	}
}

// ExtractToFile runs the extractor of the given kind over the corpus and
// writes its table to path, replacing any previous file
func (f *ExtractorFactory) ExtractToFile(ctx context.Context, kind Kind, c corpus.Corpus, path string, observer progress.Observer) (*Summary, error) {
	logger := f.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":  "ExtractToFile",
		"extractor": kind,
	})

	opts := RunOptions{Workers: f.config.Workers, Observer: observer}

	var (
		summary *Summary
		err     error
	)
	switch kind {
	case KindSpatial:
		logger.Debug("Creating spatial feature extractor")
		summary, err = extractAndSave(ctx, c, NewSpatialExtractor(&f.config.Spatial), path, opts)
	case KindFrequency:
		logger.Debug("Creating frequency feature extractor")
		var ex *FrequencyExtractor
		if ex, err = NewFrequencyExtractor(&f.config.Frequency); err == nil {
			summary, err = extractAndSave(ctx, c, ex, path, opts)
		}
	case KindTexture:
		logger.Debug("Creating texture feature extractor")
		summary, err = extractAndSave(ctx, c, NewTextureExtractor(&f.config.Texture), path, opts)
	default:
		return nil, fmt.Errorf("unknown extractor %q", kind)
	}
	if err != nil {
		logger.Error(err, "Feature extraction failed")
		return nil, err
	}

	logger.Info("Feature table written", logging.Fields{
		"output":    path,
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
	})
	return summary, nil
}

func extractAndSave[R features.Record](ctx context.Context, c corpus.Corpus, ex FeatureExtractor[R], path string, opts RunOptions) (*Summary, error) {
	table, summary, err := Run(ctx, c, ex, opts)
	if err != nil {
		return nil, err
	}
	if err := features.SaveTable(path, table); err != nil {
		return nil, err
	}
	summary.Output = path
	return summary, nil
}
