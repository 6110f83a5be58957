// Package notify fans recognition results out to independent sinks: the
// history store, Redis subscribers, announcement plugins and websocket clients.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Zeenjinn/sign-language-translation/internal/inference"
	"github.com/Zeenjinn/sign-language-translation/internal/log"
)

// DefaultTimeout bounds one sink delivery.
const DefaultTimeout = 5 * time.Second

// Event is one applied recognition result.
type Event struct {
	Session    string          `json:"session"`
	State      inference.State `json:"state"`
	Label      string          `json:"label,omitempty"`
	Confidence float64         `json:"confidence"`
	Display    string          `json:"display"`
	At         time.Time       `json:"at"`
}

// Recognized reports whether the event carries an accepted label.
func (e Event) Recognized() bool { return e.State == inference.StateRecognized }

// FromResult builds the Event for a result applied in session.
func FromResult(session uuid.UUID, r inference.Result) Event {
	return Event{
		Session:    session.String(),
		State:      r.State,
		Label:      r.Label,
		Confidence: r.Confidence,
		Display:    r.String(),
		At:         r.At,
	}
}

// Sink receives events.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

// Fanout delivers each event to every sink concurrently. A slow or failing
// sink never delays the caller or the other sinks.
type Fanout struct {
	mu      sync.RWMutex
	sinks   []Sink
	timeout time.Duration
	logger  logrus.FieldLogger
	wg      sync.WaitGroup
}

// NewFanout creates a Fanout. A nil logger discards output; a non-positive
// timeout uses DefaultTimeout.
func NewFanout(logger logrus.FieldLogger, timeout time.Duration, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = log.Discard()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fanout{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger,
	}
}

// Add registers another sink.
func (f *Fanout) Add(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

// Sinks returns the registered sink names.
func (f *Fanout) Sinks() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}
	return names
}

// Publish hands ev to every sink and returns immediately.
func (f *Fanout) Publish(ev Event) {
	f.mu.RLock()
	sinks := append([]Sink(nil), f.sinks...)
	f.mu.RUnlock()

	for _, s := range sinks {
		f.wg.Add(1)
		go func(s Sink) {
			defer f.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
			defer cancel()

			if err := s.Publish(ctx, ev); err != nil {
				f.logger.WithFields(log.Fields{
					"sink":    s.Name(),
					"session": ev.Session,
					"error":   err.Error(),
				}).Warn("failed to deliver recognition event")
			}
		}(s)
	}
}

// Observe publishes a pipeline result. Its signature matches pipeline.Observer.
func (f *Fanout) Observe(session uuid.UUID, r inference.Result) {
	f.Publish(FromResult(session, r))
}

// Wait blocks until all deliveries started so far have finished.
func (f *Fanout) Wait() {
	f.wg.Wait()
}
