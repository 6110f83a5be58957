package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Zeenjinn/sign-language-translation/internal/detector"
	"github.com/Zeenjinn/sign-language-translation/internal/inference"
	"github.com/Zeenjinn/sign-language-translation/internal/pipeline"
)

type fakeRecognizer struct {
	mu       sync.Mutex
	session  uuid.UUID
	result   inference.Result
	stats    pipeline.Stats
	ingested []detector.LandmarkSet
	resets   int
	err      error
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{session: uuid.New()}
}

func (f *fakeRecognizer) Ingest(ctx context.Context, set detector.LandmarkSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ingested = append(f.ingested, set)
	f.stats.Frames++
	return nil
}

func (f *fakeRecognizer) Reset(ctx context.Context) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = uuid.New()
	f.result = inference.Result{}
	f.resets++
	return f.session, nil
}

func (f *fakeRecognizer) Result() inference.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

func (f *fakeRecognizer) Session() uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *fakeRecognizer) Stats() pipeline.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *fakeRecognizer) setResult(r inference.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.result = r
}

func (f *fakeRecognizer) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeRecognizer) Ingested() []detector.LandmarkSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]detector.LandmarkSet(nil), f.ingested...)
}

func (f *fakeRecognizer) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

type fakeController struct {
	mu       sync.Mutex
	rec      *fakeRecognizer
	running  bool
	startErr error
}

func (f *fakeController) Start(ctx context.Context) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return uuid.Nil, f.startErr
	}
	f.running = true
	return f.rec.Reset(ctx)
}

func (f *fakeController) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	_, err := f.rec.Reset(ctx)
	return err
}

func (f *fakeController) Reset(ctx context.Context) (uuid.UUID, error) {
	return f.rec.Reset(ctx)
}

func (f *fakeController) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
