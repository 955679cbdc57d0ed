package preprocess

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/specimen/corpus"
	"github.com/RyanBlaney/specimen/progress"
)

// RejectedLogFile is written by the cleaning stage into its output directory
const RejectedLogFile = "rejected_images.txt"

// Stage names one preprocessing step
type Stage string

const (
	StageClean     Stage = "clean"
	StageCrop      Stage = "crop"
	StageResize    Stage = "resize"
	StageGrayscale Stage = "grayscale"
	StageEnhance   Stage = "enhance"
)

// AllStages lists the stages in pipeline order
var AllStages = []Stage{StageClean, StageCrop, StageResize, StageGrayscale, StageEnhance}

// ParseStage resolves a stage name
func ParseStage(name string) (Stage, error) {
	s := Stage(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range AllStages {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown preprocessing stage %q", name)
}

// Rejection records an image a stage did not write
type Rejection struct {
	Path   string `json:"path" yaml:"path"`
	Reason string `json:"reason" yaml:"reason"`
}

// Summary describes one stage run
type Summary struct {
	Stage    Stage         `json:"stage" yaml:"stage"`
	Input    string        `json:"input" yaml:"input"`
	Output   string        `json:"output" yaml:"output"`
	Images   int           `json:"images" yaml:"images"`
	Written  int           `json:"written" yaml:"written"`
	Rejected []Rejection   `json:"rejected,omitempty" yaml:"rejected,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// RunOptions controls one stage run
type RunOptions struct {
	Stage    Stage
	Output   string
	Workers  int
	Observer progress.Observer
}

type locator interface {
	Location(species, name string) string
}

func location(c corpus.Corpus, item corpus.Item) string {
	if l, ok := c.(locator); ok {
		return l.Location(item.Species, item.Name)
	}
	return path.Join(item.Species, item.Name)
}

// Run applies t to every image of the corpus and writes the results under
// opts.Output, mirroring the species directories and keeping file names.
// Unreadable images and images rejected by t are reported, never fatal.
func Run(ctx context.Context, c corpus.Corpus, t Transform, opts RunOptions) (*Summary, error) {
	start := time.Now()
	observer := opts.Observer
	if observer == nil {
		observer = progress.Discard
	}
	workers := max(opts.Workers, 1)
	name := string(opts.Stage)

	items, err := corpus.List(c)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate corpus: %w", err)
	}
	if err := os.MkdirAll(opts.Output, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	observer.OnEvent(progress.Event{Type: progress.StageStarted, Stage: name, Total: len(items)})

	// species directories are created even when every image is rejected
	species, err := c.Species()
	if err != nil {
		return nil, fmt.Errorf("failed to list species: %w", err)
	}
	for _, s := range species {
		if err := os.MkdirAll(filepath.Join(opts.Output, s), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create species directory: %w", err)
		}
	}

	rejections := make([]*Rejection, len(items))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	current := ""
schedule:
	for i, item := range items {
		select {
		case <-gctx.Done():
			break schedule
		default:
		}

		if item.Species != current {
			current = item.Species
			observer.OnEvent(progress.Event{Type: progress.SpeciesStarted, Stage: name, Species: current})
		}

		g.Go(func() error {
			reason, err := process(c, t, item, opts.Output)
			if err != nil {
				return err
			}

			event := progress.Event{
				Type:    progress.ItemProcessed,
				Stage:   name,
				Species: item.Species,
				Item:    item.Name,
				Done:    int(done.Add(1)),
				Total:   len(items),
			}
			if reason != "" {
				rejections[i] = &Rejection{Path: location(c, item), Reason: reason}
				event.Type = progress.ItemSkipped
				event.Reason = reason
			}
			observer.OnEvent(event)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &Summary{
		Stage:  opts.Stage,
		Output: opts.Output,
		Images: len(items),
	}
	for _, r := range rejections {
		if r != nil {
			summary.Rejected = append(summary.Rejected, *r)
		}
	}
	summary.Written = summary.Images - len(summary.Rejected)
	summary.Duration = time.Since(start)

	observer.OnEvent(progress.Event{
		Type:     progress.StageFinished,
		Stage:    name,
		Done:     summary.Written,
		Total:    summary.Images,
		Duration: summary.Duration,
	})

	return summary, nil
}

// process transforms and writes one image, returning a reject reason when
// nothing was written
func process(c corpus.Corpus, t Transform, item corpus.Item, output string) (string, error) {
	img, err := corpus.Load(c, item.Species, item.Name)
	if err != nil {
		return ReasonUnreadable, nil
	}

	out, err := t.Apply(img)
	if err != nil {
		var rejected *RejectError
		if errors.As(err, &rejected) {
			return rejected.Reason, nil
		}
		return "", fmt.Errorf("failed to process %s/%s: %w", item.Species, item.Name, err)
	}

	if err := corpus.Save(filepath.Join(output, item.Species, item.Name), out); err != nil {
		return "", err
	}
	return "", nil
}

// WriteRejections writes one "<path> -> <reason>" line per rejection
func WriteRejections(file string, rejections []Rejection) error {
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", file, err)
	}

	w := bufio.NewWriter(f)
	for _, r := range rejections {
		if _, err := fmt.Fprintf(w, "%s -> %s\n", r.Path, r.Reason); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
