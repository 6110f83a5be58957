// Package pipeline runs the recognition loop: it normalizes frames, buffers
// them, decides when to classify and applies the classifier's answers.
//
// All mutable recognition state is owned by the goroutine running Run.
// Frames, resets and classifier completions reach it as messages, so no two
// of them are ever applied concurrently.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Zeenjinn/sign-language-translation/internal/detector"
	"github.com/Zeenjinn/sign-language-translation/internal/feature"
	"github.com/Zeenjinn/sign-language-translation/internal/inference"
	"github.com/Zeenjinn/sign-language-translation/internal/log"
	"github.com/Zeenjinn/sign-language-translation/internal/sequence"
)

// ErrStopped is returned when the pipeline loop is not running anymore.
var ErrStopped = errors.New("pipeline stopped")

// Config holds the recognition tuning values.
type Config struct {
	WindowSize     int
	Cooldown       time.Duration
	BufferCapacity int
	// RequestTimeout bounds one classifier call.
	RequestTimeout time.Duration
}

// DefaultConfig returns the standard recognition settings.
func DefaultConfig() Config {
	return Config{
		WindowSize:     inference.DefaultWindowSize,
		Cooldown:       inference.DefaultCooldown,
		BufferCapacity: sequence.DefaultCapacity,
		RequestTimeout: inference.DefaultTimeout,
	}
}

// Stats counts what the loop has done since construction.
type Stats struct {
	Frames     uint64 `json:"frames"`
	Dropped    uint64 `json:"dropped"`
	Dispatched uint64 `json:"dispatched"`
	Completed  uint64 `json:"completed"`
	Failed     uint64 `json:"failed"`
	Stale      uint64 `json:"stale"`
	Buffered   int    `json:"buffered"`
}

// Observer is called from the loop goroutine each time a classifier answer
// replaces the current result. It must not block.
type Observer func(session uuid.UUID, result inference.Result)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithObserver registers an observer for applied results.
func WithObserver(observer Observer) Option {
	return func(p *Pipeline) {
		p.observers = append(p.observers, observer)
	}
}

type frameEvent struct {
	set  detector.LandmarkSet
	done chan error
}

type resetEvent struct {
	done chan uuid.UUID
}

type completionEvent struct {
	session uuid.UUID
	result  inference.Result
	err     error
	done    chan struct{}
}

// Pipeline is the recognition actor.
type Pipeline struct {
	config     Config
	classifier inference.Classifier
	logger     logrus.FieldLogger
	now        func() time.Time
	observers  []Observer

	frames      chan frameEvent
	resets      chan resetEvent
	completions chan completionEvent
	stopped     chan struct{}
	stopOnce    sync.Once

	// Owned by the loop goroutine.
	buffer    *sequence.Buffer
	scheduler *inference.Scheduler

	// Written by the loop, read by anyone.
	mu      sync.RWMutex
	session uuid.UUID
	result  inference.Result
	stats   Stats

	inflight sync.WaitGroup
}

// New creates a Pipeline that classifies through classifier. Call Run to start it.
func New(classifier inference.Classifier, config Config, opts ...Option) *Pipeline {
	defaults := DefaultConfig()
	if config.WindowSize <= 0 {
		config.WindowSize = defaults.WindowSize
	}
	if config.Cooldown <= 0 {
		config.Cooldown = defaults.Cooldown
	}
	if config.BufferCapacity < config.WindowSize {
		config.BufferCapacity = 2 * config.WindowSize
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaults.RequestTimeout
	}

	p := &Pipeline{
		config:      config,
		classifier:  classifier,
		logger:      log.Discard(),
		now:         time.Now,
		frames:      make(chan frameEvent),
		resets:      make(chan resetEvent),
		completions: make(chan completionEvent),
		stopped:     make(chan struct{}),
		buffer:      sequence.NewBuffer(config.BufferCapacity),
		session:     uuid.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.scheduler = inference.NewScheduler(config.WindowSize, config.Cooldown, p.now())
	return p
}

// Run processes events until ctx is cancelled. It must be called at most once.
func (p *Pipeline) Run(ctx context.Context) {
	defer p.stop()

	p.scheduler.Reset(p.now())
	p.logger.WithFields(log.Fields{
		"session":     p.Session().String(),
		"window_size": p.config.WindowSize,
		"cooldown":    p.config.Cooldown.String(),
	}).Info("recognition pipeline started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("recognition pipeline stopped")
			return
		case ev := <-p.frames:
			ev.done <- p.process(ev.set)
		case ev := <-p.resets:
			ev.done <- p.reset()
		case ev := <-p.completions:
			p.complete(ev)
			close(ev.done)
		}
	}
}

// Ingest hands one frame of landmarks to the loop and waits until it has been
// normalized, buffered and gated. Classification, if triggered, continues in
// the background. Malformed frames are dropped and reported with
// feature.ErrMalformed.
func (p *Pipeline) Ingest(ctx context.Context, set detector.LandmarkSet) error {
	ev := frameEvent{set: set, done: make(chan error, 1)}

	select {
	case p.frames <- ev:
	case <-p.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-ev.done:
		return err
	case <-p.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset starts a new session: history and cooldown are cleared, the result
// goes back to none and answers for earlier windows will be ignored.
func (p *Pipeline) Reset(ctx context.Context) (uuid.UUID, error) {
	ev := resetEvent{done: make(chan uuid.UUID, 1)}

	select {
	case p.resets <- ev:
	case <-p.stopped:
		return uuid.Nil, ErrStopped
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}

	select {
	case session := <-ev.done:
		return session, nil
	case <-p.stopped:
		return uuid.Nil, ErrStopped
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// Wait blocks until every dispatched request has completed and its answer has
// been applied or discarded.
func (p *Pipeline) Wait() {
	p.inflight.Wait()
}

// Result returns the current recognition result.
func (p *Pipeline) Result() inference.Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.result
}

// Session returns the active session token.
func (p *Pipeline) Session() uuid.UUID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.session
}

// Stats returns a snapshot of the loop counters.
func (p *Pipeline) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return p.config }

func (p *Pipeline) stop() {
	p.stopOnce.Do(func() { close(p.stopped) })
}

func (p *Pipeline) process(set detector.LandmarkSet) error {
	vector, err := feature.Encode(set)
	if err != nil {
		p.mu.Lock()
		p.stats.Dropped++
		p.mu.Unlock()
		p.logger.WithField("error", err.Error()).Debug("dropping malformed frame")
		return err
	}

	p.buffer.Append(vector)
	window, ok := p.scheduler.Evaluate(p.buffer, p.now())

	p.mu.Lock()
	p.stats.Frames++
	p.stats.Buffered = p.buffer.Len()
	if ok {
		p.stats.Dispatched++
	}
	session := p.session
	p.mu.Unlock()

	if ok {
		p.dispatch(session, window)
	}
	return nil
}

func (p *Pipeline) dispatch(session uuid.UUID, window inference.Window) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), p.config.RequestTimeout)
		result, err := p.classifier.Classify(ctx, window)
		cancel()

		ev := completionEvent{session: session, result: result, err: err, done: make(chan struct{})}
		select {
		case p.completions <- ev:
			<-ev.done
		case <-p.stopped:
		}
	}()
}

func (p *Pipeline) complete(ev completionEvent) {
	p.mu.Lock()
	if ev.session != p.session {
		p.stats.Stale++
		p.mu.Unlock()
		p.logger.WithField("session", ev.session.String()).Debug("discarding answer from previous session")
		return
	}
	if ev.err != nil {
		p.stats.Failed++
		p.mu.Unlock()
		p.logger.WithFields(log.Fields{
			"session": ev.session.String(),
			"error":   ev.err.Error(),
		}).Warn("classifier request failed")
		return
	}
	p.stats.Completed++
	p.result = ev.result
	p.mu.Unlock()

	p.logger.WithFields(log.Fields{
		"session":    ev.session.String(),
		"state":      ev.result.State.String(),
		"label":      ev.result.Label,
		"confidence": ev.result.Confidence,
	}).Info("recognition result")

	for _, observer := range p.observers {
		observer(ev.session, ev.result)
	}
}

func (p *Pipeline) reset() uuid.UUID {
	session := uuid.New()

	p.buffer.Reset()
	p.scheduler.Reset(p.now())

	p.mu.Lock()
	p.session = session
	p.result = inference.Result{}
	p.stats.Buffered = 0
	p.mu.Unlock()

	p.logger.WithField("session", session.String()).Info("recognition session reset")
	return session
}
