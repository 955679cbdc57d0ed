// Package progress carries structured progress events from pipeline stages
// to whoever is watching them.
package progress

import (
	"sync"
	"time"

	"github.com/RyanBlaney/specimen/logging"
)

// EventType classifies progress events
type EventType string

const (
	StageStarted   EventType = "stage_started"
	StageFinished  EventType = "stage_finished"
	ItemProcessed  EventType = "item_processed"
	ItemSkipped    EventType = "item_skipped"
	SpeciesStarted EventType = "species_started"
)

// Event is one progress notification
type Event struct {
	Type     EventType     `json:"type"`
	Stage    string        `json:"stage"`
	Species  string        `json:"species,omitempty"`
	Item     string        `json:"item,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Done     int           `json:"done"`
	Total    int           `json:"total"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// Observer receives progress events. Implementations must be safe for
// concurrent use; stages running in parallel share one observer.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

// OnEvent implements Observer
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}

// Discard ignores every event
var Discard Observer = ObserverFunc(func(Event) {})

// Multi fans events out to several observers
func Multi(observers ...Observer) Observer {
	list := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return ObserverFunc(func(e Event) {
		for _, o := range list {
			o.OnEvent(e)
		}
	})
}

// LogObserver writes events to a logger. Per-item successes are logged at
// debug level, everything else at info or warn.
type LogObserver struct {
	logger logging.Logger
}

// NewLogObserver creates an observer logging through the global logger
func NewLogObserver() *LogObserver {
	return &LogObserver{
		logger: logging.WithFields(logging.Fields{
			"component": "progress",
		}),
	}
}

// OnEvent implements Observer
func (l *LogObserver) OnEvent(e Event) {
	fields := logging.Fields{
		"stage": e.Stage,
	}
	if e.Species != "" {
		fields["species"] = e.Species
	}
	if e.Item != "" {
		fields["item"] = e.Item
	}
	if e.Total > 0 {
		fields["done"] = e.Done
		fields["total"] = e.Total
	}

	switch e.Type {
	case StageStarted:
		l.logger.Info("Stage started", fields)
	case StageFinished:
		fields["duration"] = e.Duration.String()
		if e.Err != nil {
			l.logger.Error(e.Err, "Stage failed", fields)
			return
		}
		l.logger.Info("Stage finished", fields)
	case SpeciesStarted:
		l.logger.Info("Processing species", fields)
	case ItemSkipped:
		fields["reason"] = e.Reason
		l.logger.Warn("Image skipped", fields)
	case ItemProcessed:
		l.logger.Debug("Image processed", fields)
	}
}

// Recorder keeps every event in memory, mostly for tests
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// OnEvent implements Observer
func (r *Recorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of the given type were recorded
func (r *Recorder) Count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}
