package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gocv.io/x/gocv"

	"github.com/Zeenjinn/sign-language-translation/internal/capture"
	"github.com/Zeenjinn/sign-language-translation/internal/detector"
	"github.com/Zeenjinn/sign-language-translation/internal/pipeline"
	"github.com/Zeenjinn/sign-language-translation/internal/store"
)

type fakeRecognizer struct {
	mu        sync.Mutex
	sessions  []uuid.UUID
	frames    []detector.LandmarkSet
	ingestErr error
}

func (f *fakeRecognizer) Ingest(ctx context.Context, set detector.LandmarkSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ingestErr != nil {
		return f.ingestErr
	}
	f.frames = append(f.frames, set)
	return nil
}

func (f *fakeRecognizer) failIngest(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingestErr = err
}

func (f *fakeRecognizer) Reset(ctx context.Context) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.sessions = append(f.sessions, id)
	return id, nil
}

func (f *fakeRecognizer) Frames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeRecognizer) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fixture struct {
	app        *App
	camera     *capture.MockCamera
	detector   *detector.MockDetector
	recognizer *fakeRecognizer
	store      *store.Store
	hook       *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })

	camera := capture.NewMockCamera([]*gocv.Mat{&frame}, true)
	camera.SetFPS(50)

	det := detector.NewMockDetector()
	det.SetLandmarks(detector.FullLandmarkSet())

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	recognizer := &fakeRecognizer{}
	a := New(Config{
		Recognizer: recognizer,
		Camera:     camera,
		Detector:   det,
		Store:      s,
		Logger:     logger,
	})
	t.Cleanup(func() { a.Close() })

	return &fixture{app: a, camera: camera, detector: det, recognizer: recognizer, store: s, hook: hook}
}

// eventually polls cond for up to two seconds.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestApp_StartStop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.app.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !f.app.Running() || f.app.Session() != session {
		t.Fatal("app should be running the returned session")
	}
	if !f.camera.IsOpen() {
		t.Error("camera should be open")
	}

	eventually(t, "frames to reach the recognizer", func() bool { return f.recognizer.Frames() >= 3 })

	if f.detector.Calls() < 3 {
		t.Errorf("detector called %d times, want at least 3", f.detector.Calls())
	}

	rec, err := f.store.Sessions().GetByID(session.String())
	if err != nil {
		t.Fatalf("session record missing: %v", err)
	}
	if rec.Source != store.SourceCamera || !rec.Active() {
		t.Errorf("record = %+v, want active camera session", rec)
	}

	if err := f.app.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if f.app.Running() || f.app.Session() != uuid.Nil {
		t.Error("app should be stopped")
	}
	if f.camera.IsOpen() || f.camera.Closes() != 1 {
		t.Errorf("camera open = %v, closes = %d", f.camera.IsOpen(), f.camera.Closes())
	}
	if f.recognizer.Resets() != 2 {
		t.Errorf("recognizer reset %d times, want 2", f.recognizer.Resets())
	}

	rec, _ = f.store.Sessions().GetByID(session.String())
	if rec.Active() {
		t.Error("session record should be ended")
	}

	// No frames after stop.
	frames := f.recognizer.Frames()
	time.Sleep(60 * time.Millisecond)
	if got := f.recognizer.Frames(); got != frames {
		t.Errorf("frames kept flowing after Stop: %d -> %d", frames, got)
	}

	if err := f.app.Stop(ctx); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestApp_StartCameraFailure(t *testing.T) {
	f := newFixture(t)
	f.camera.FailOpen(errors.New("device busy"))

	if _, err := f.app.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail when the camera cannot open")
	}
	if f.app.Running() {
		t.Error("failed start must leave the app stopped")
	}
	if f.recognizer.Resets() != 0 {
		t.Error("failed start must not reset the recognizer")
	}

	sessions, _ := f.store.Sessions().List(0)
	if len(sessions) != 0 {
		t.Errorf("got %d session records, want 0", len(sessions))
	}
}

func TestApp_StartIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.app.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	second, err := f.app.Start(ctx)
	if err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if first != second {
		t.Errorf("second Start() returned %s, want %s", second, first)
	}
	if f.camera.Opens() != 1 {
		t.Errorf("camera opened %d times, want 1", f.camera.Opens())
	}
}

func TestApp_ResetWhileRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, _ := f.app.Start(ctx)
	next, err := f.app.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if next == first || f.app.Session() != next {
		t.Errorf("Reset() = %s, session = %s", next, f.app.Session())
	}

	old, _ := f.store.Sessions().GetByID(first.String())
	if old.Active() {
		t.Error("previous session record should be ended")
	}
	cur, err := f.store.Sessions().GetByID(next.String())
	if err != nil || !cur.Active() {
		t.Errorf("new session record = %+v, %v", cur, err)
	}
}

func TestApp_ResetWhileStopped(t *testing.T) {
	f := newFixture(t)

	if _, err := f.app.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if f.app.Running() {
		t.Error("Reset() must not start capture")
	}
	sessions, _ := f.store.Sessions().List(0)
	if len(sessions) != 0 {
		t.Errorf("got %d session records, want 0", len(sessions))
	}
}

func TestApp_DetectionFailureSkipsFrame(t *testing.T) {
	f := newFixture(t)
	f.detector.SetError(errors.New("model crashed"))

	if _, err := f.app.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	eventually(t, "detector calls", func() bool { return f.detector.Calls() >= 2 })
	f.app.Stop(context.Background())

	if n := f.recognizer.Frames(); n != 0 {
		t.Errorf("recognizer got %d frames, want 0", n)
	}

	found := false
	for _, entry := range f.hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "landmark detection failed" {
			found = true
		}
	}
	if !found {
		t.Error("expected a warning for the failed detection")
	}
}

func TestApp_Close(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.app.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.app.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if f.app.Running() || f.camera.IsOpen() {
		t.Error("Close() should stop capture")
	}
	if _, err := f.app.Start(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close error = %v, want ErrClosed", err)
	}
	if err := f.app.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New(Config{Recognizer: &fakeRecognizer{}, Detector: detector.NewMockDetector()})
	defer a.Close()

	if a.Camera() == nil || a.Stream() == nil {
		t.Fatal("expected default camera and stream")
	}
	if a.Running() {
		t.Error("new app should not be running")
	}
}

func TestApp_StartWithoutDetector(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()
	camera := capture.NewMockCamera([]*gocv.Mat{&frame}, true)

	logger, hook := test.NewNullLogger()
	recognizer := &fakeRecognizer{}
	a := New(Config{
		Recognizer: recognizer,
		Camera:     camera,
		NewDetector: func(detector.Config) (detector.Detector, error) {
			return nil, errors.New("holistic_service.py not found")
		},
		Logger: logger,
	})
	defer a.Close()

	if a.Detector() != nil {
		t.Fatal("no detector should be installed when construction fails")
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Error("expected a warning about the missing detector")
	}

	_, err := a.Start(context.Background())
	if !errors.Is(err, ErrDetectorUnavailable) {
		t.Fatalf("Start() error = %v, want ErrDetectorUnavailable", err)
	}
	if a.Running() {
		t.Error("failed start must leave the app stopped")
	}
	if camera.Opens() != 0 {
		t.Errorf("camera opened %d times, want 0", camera.Opens())
	}
	if recognizer.Resets() != 0 {
		t.Error("failed start must not reset the recognizer")
	}
}

func TestApp_StartDetectorNotReady(t *testing.T) {
	f := newFixture(t)
	f.detector.FailPrepare(errors.New("no module named mediapipe"))

	_, err := f.app.Start(context.Background())
	if !errors.Is(err, ErrDetectorUnavailable) {
		t.Fatalf("Start() error = %v, want ErrDetectorUnavailable", err)
	}
	if f.app.Running() || f.camera.Opens() != 0 {
		t.Errorf("running = %v, camera opens = %d", f.app.Running(), f.camera.Opens())
	}

	f.detector.FailPrepare(nil)
	if _, err := f.app.Start(context.Background()); err != nil {
		t.Fatalf("Start() after the detector recovered error = %v", err)
	}
	if f.detector.Prepares() != 2 {
		t.Errorf("Prepare called %d times, want 2", f.detector.Prepares())
	}
}

func TestApp_RecognizerStoppedEndsCapture(t *testing.T) {
	f := newFixture(t)

	session, err := f.app.Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.recognizer.failIngest(pipeline.ErrStopped)

	eventually(t, "capture to stop", func() bool { return !f.app.Running() })

	if f.camera.IsOpen() || f.camera.Closes() != 1 {
		t.Errorf("camera open = %v, closes = %d", f.camera.IsOpen(), f.camera.Closes())
	}
	rec, err := f.store.Sessions().GetByID(session.String())
	if err != nil || rec.Active() {
		t.Errorf("session record = %+v, %v, want ended", rec, err)
	}

	found := false
	for _, entry := range f.hook.AllEntries() {
		if entry.Level == logrus.WarnLevel && entry.Message == "capture loop stopped" {
			found = true
		}
	}
	if !found {
		t.Error("expected a warning when the capture loop ends")
	}

	if err := f.app.Stop(context.Background()); err != nil {
		t.Errorf("Stop() after the loop ended error = %v", err)
	}
}
