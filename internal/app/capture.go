package app

import (
	"context"
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/Zeenjinn/sign-language-translation/internal/capture"
	"github.com/Zeenjinn/sign-language-translation/internal/feature"
	"github.com/Zeenjinn/sign-language-translation/internal/log"
	"github.com/Zeenjinn/sign-language-translation/internal/overlay"
)

// capture runs the loop and, when it ends on its own, stops the session it
// belonged to so the camera is released and Running reports false.
func (a *App) capture(ctx context.Context, done chan struct{}) {
	err := a.runCapture(ctx)
	close(done)
	if err == nil {
		return
	}

	a.logger.WithField("error", err.Error()).Warn("capture loop stopped")

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running || a.done != done {
		return
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.stopLocked(stopCtx); err != nil {
		a.logger.WithField("error", err.Error()).Warn("failed to stop capture")
	}
}

// runCapture reads frames at the camera rate until ctx is cancelled. It returns
// nil on cancellation and the error that ended the loop otherwise.
//
// Per frame:
// 1. Read a frame from the camera
// 2. Detect pose and hand landmarks
// 3. Hand the landmarks to the recognizer
// 4. Draw the overlay and publish the frame on the MJPEG stream
func (a *App) runCapture(ctx context.Context) error {
	fps := a.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.processFrame(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// processFrame runs one capture step. Only errors that end the loop are
// returned; everything else is logged and the frame skipped.
func (a *App) processFrame(ctx context.Context) error {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.logger.WithField("error", err.Error()).Debug("skipping frame")
		return nil
	}
	defer frame.Close()

	set, err := a.detector.Detect(frame)
	if err != nil {
		a.logger.WithField("error", err.Error()).Warn("landmark detection failed")
		return nil
	}

	if err := a.recognizer.Ingest(ctx, set); err != nil {
		if !errors.Is(err, feature.ErrMalformed) {
			return err
		}
	}

	overlay.Draw(frame, overlay.Project(set))

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		a.logger.WithFields(log.Fields{"error": err.Error()}).Debug("failed to encode frame")
		return nil
	}
	a.stream.UpdateJPEG(buf.GetBytes())
	buf.Close()

	return nil
}
