package inference

import (
	"time"

	"github.com/Zeenjinn/sign-language-translation/internal/feature"
)

// Scheduling defaults.
const (
	// DefaultWindowSize is the number of frames submitted per request.
	DefaultWindowSize = 30
	// DefaultCooldown is the minimum time between two dispatch attempts.
	DefaultCooldown = time.Second
)

// History is the view of the sequence buffer the scheduler needs.
type History interface {
	Len() int
	Trailing(n int) ([]feature.Vector, bool)
}

// Window is the trailing slice of frames sent to the classifier.
type Window [][]float64

// NewWindow converts buffered vectors into a Window.
func NewWindow(vectors []feature.Vector) Window {
	w := make(Window, len(vectors))
	for i, v := range vectors {
		w[i] = v
	}
	return w
}

// Scheduler decides on every frame whether a new request should be dispatched.
// It owns the timestamp of the last dispatch attempt and is not safe for
// concurrent use.
type Scheduler struct {
	windowSize int
	cooldown   time.Duration
	last       time.Time
}

// NewScheduler creates a Scheduler whose cooldown starts running at start.
// Non-positive arguments fall back to the defaults.
func NewScheduler(windowSize int, cooldown time.Duration, start time.Time) *Scheduler {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Scheduler{
		windowSize: windowSize,
		cooldown:   cooldown,
		last:       start,
	}
}

// Evaluate returns the window to dispatch at now, if any.
//
// A window is released only when the history holds at least WindowSize frames
// and strictly more than Cooldown has elapsed since the last attempt. The
// attempt time is recorded before the caller dispatches, so a failing
// classifier still sees at most one request per cooldown.
func (s *Scheduler) Evaluate(history History, now time.Time) (Window, bool) {
	if history.Len() < s.windowSize {
		return nil, false
	}
	if now.Sub(s.last) <= s.cooldown {
		return nil, false
	}

	vectors, ok := history.Trailing(s.windowSize)
	if !ok {
		return nil, false
	}

	s.last = now
	return NewWindow(vectors), true
}

// Reset re-arms the cooldown from now.
func (s *Scheduler) Reset(now time.Time) {
	s.last = now
}

// LastDispatch returns the time of the last dispatch attempt, or the start
// time if nothing has been dispatched since the last reset.
func (s *Scheduler) LastDispatch() time.Time { return s.last }

// WindowSize returns the number of frames per request.
func (s *Scheduler) WindowSize() int { return s.windowSize }

// Cooldown returns the minimum time between dispatch attempts.
func (s *Scheduler) Cooldown() time.Duration { return s.cooldown }
