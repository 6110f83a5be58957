// Package app ties camera capture, landmark detection and the recognition
// pipeline together into start/stop capture sessions.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hybridgroup/mjpeg"
	"github.com/sirupsen/logrus"

	"github.com/Zeenjinn/sign-language-translation/internal/capture"
	"github.com/Zeenjinn/sign-language-translation/internal/detector"
	"github.com/Zeenjinn/sign-language-translation/internal/log"
	"github.com/Zeenjinn/sign-language-translation/internal/pipeline"
	"github.com/Zeenjinn/sign-language-translation/internal/store"
)

var (
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("app is closed")

	// ErrDetectorUnavailable is returned by Start when no landmark source can be used.
	ErrDetectorUnavailable = errors.New("landmark source unavailable")
)

// Recognizer is the part of the pipeline the capture loop feeds.
// *pipeline.Pipeline implements it.
type Recognizer interface {
	Ingest(ctx context.Context, set detector.LandmarkSet) error
	Reset(ctx context.Context) (uuid.UUID, error)
}

// Config holds configuration options for the application.
type Config struct {
	Recognizer Recognizer

	// Camera defaults to the device described by CameraOptions.
	Camera        capture.Camera
	CameraOptions capture.Options

	// Detector defaults to the one built by NewDetector from DetectorConfig.
	Detector       detector.Detector
	DetectorConfig detector.Config

	// NewDetector defaults to the holistic detector.
	NewDetector func(detector.Config) (detector.Detector, error)

	// Store records camera sessions when set.
	Store *store.Store

	Logger logrus.FieldLogger
	Clock  func() time.Time
}

// App owns the camera, the detector and the annotated MJPEG stream, and runs
// the capture loop that feeds the recognizer.
type App struct {
	config     Config
	recognizer Recognizer
	camera     capture.Camera
	detector   detector.Detector
	detErr     error
	stream     *mjpeg.Stream
	logger     logrus.FieldLogger
	now        func() time.Time

	mu      sync.Mutex
	running bool
	closed  bool
	session uuid.UUID
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	a := &App{
		config:     config,
		recognizer: config.Recognizer,
		camera:     config.Camera,
		detector:   config.Detector,
		stream:     mjpeg.NewStream(),
		logger:     config.Logger,
		now:        config.Clock,
	}
	if a.logger == nil {
		a.logger = log.Discard()
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.camera == nil {
		a.camera = capture.NewCamera(config.CameraOptions)
	}

	if a.detector == nil {
		newDetector := config.NewDetector
		if newDetector == nil {
			newDetector = newHolisticDetector
		}
		d, err := newDetector(config.DetectorConfig)
		if err == nil && d == nil {
			err = errors.New("no detector configured")
		}
		if err == nil {
			a.detector = d
			a.logger.Info("landmark detector configured")
		} else {
			a.detErr = err
			a.logger.WithField("error", err.Error()).Warn("landmark detector not available, capture disabled")
		}
	}

	return a
}

// Start checks the landmark source, opens the camera, begins a new recognition
// session and runs the capture loop. If the detector or the camera is not
// usable nothing changes. Starting a running app returns the current session.
func (a *App) Start(ctx context.Context) (uuid.UUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return uuid.Nil, ErrClosed
	}
	if a.running {
		return a.session, nil
	}

	if err := a.prepareDetector(); err != nil {
		return uuid.Nil, fmt.Errorf("start capture: %w: %w", ErrDetectorUnavailable, err)
	}

	if err := a.camera.Open(); err != nil {
		return uuid.Nil, fmt.Errorf("start capture: %w", err)
	}

	session, err := a.recognizer.Reset(ctx)
	if err != nil {
		a.camera.Close()
		return uuid.Nil, fmt.Errorf("start capture: %w", err)
	}
	a.openRecord(session)

	loopCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	a.session = session
	a.running = true

	go a.capture(loopCtx, a.done)

	a.logger.WithFields(log.Fields{
		"session": session.String(),
		"fps":     a.camera.FPS(),
	}).Info("capture started")
	return session, nil
}

// Stop halts the capture loop, closes the camera, resets the recognizer and
// ends the session record. Stopping a stopped app is a no-op.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}
	return a.stopLocked(ctx)
}

func (a *App) stopLocked(ctx context.Context) error {
	a.cancel()
	<-a.done
	a.running = false

	var errs []error
	if err := a.camera.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close camera: %w", err))
	}

	a.closeRecord(a.session)

	if _, err := a.recognizer.Reset(ctx); err != nil && !errors.Is(err, pipeline.ErrStopped) {
		errs = append(errs, fmt.Errorf("reset recognizer: %w", err))
	}

	a.logger.WithField("session", a.session.String()).Info("capture stopped")
	return errors.Join(errs...)
}

// Reset starts a new recognition session. While capturing, the old session
// record is ended and a new one opened.
func (a *App) Reset(ctx context.Context) (uuid.UUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	session, err := a.recognizer.Reset(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	if a.running {
		a.closeRecord(a.session)
		a.openRecord(session)
		a.session = session
	}
	return session, nil
}

// Running reports whether the capture loop is active.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Session returns the session of the current capture, or uuid.Nil when stopped.
func (a *App) Session() uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return uuid.Nil
	}
	return a.session
}

// Stream returns the annotated MJPEG stream.
func (a *App) Stream() *mjpeg.Stream {
	return a.stream
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the landmark detector in use, or nil when none could be built.
func (a *App) Detector() detector.Detector {
	return a.detector
}

// Close stops capture and releases the detector. The app cannot be restarted.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	if a.running {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.stopLocked(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close detector: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (a *App) prepareDetector() error {
	if a.detector == nil {
		return a.detErr
	}
	if p, ok := a.detector.(detector.Preparer); ok {
		return p.Prepare()
	}
	return nil
}

func newHolisticDetector(config detector.Config) (detector.Detector, error) {
	return detector.NewHolisticDetector(config)
}

// openRecord stores a camera session. History is best effort.
func (a *App) openRecord(session uuid.UUID) {
	if a.config.Store == nil {
		return
	}
	err := a.config.Store.Sessions().Create(&store.Session{
		ID:        session.String(),
		Source:    store.SourceCamera,
		StartedAt: a.now(),
	})
	if err != nil {
		a.logger.WithFields(log.Fields{
			"session": session.String(),
			"error":   err.Error(),
		}).Warn("failed to record session")
	}
}

func (a *App) closeRecord(session uuid.UUID) {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Sessions().End(session.String()); err != nil {
		a.logger.WithFields(log.Fields{
			"session": session.String(),
			"error":   err.Error(),
		}).Warn("failed to end session record")
	}
}
