package detector

import "gocv.io/x/gocv"

// Detector defines the interface for landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the pose and hand landmarks found in it.
	// Sources that were not detected are left nil in the returned set.
	Detect(frame *gocv.Mat) (LandmarkSet, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Preparer is implemented by detectors whose backend must be started before
// the first frame. Prepare fails when the landmark source is unavailable.
type Preparer interface {
	Prepare() error
}

// Config holds the detector tuning knobs. They are forwarded unchanged to the
// underlying model and never interpreted by the recognizer.
type Config struct {
	// ModelComplexity selects the pose model size (0, 1 or 2).
	ModelComplexity int

	// SmoothLandmarks enables temporal smoothing across frames.
	SmoothLandmarks bool

	// MinDetectionConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinDetectionConfidence float64

	// MinTrackingConfidence is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConfidence float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelComplexity:        1,
		SmoothLandmarks:        true,
		MinDetectionConfidence: 0.5,
		MinTrackingConfidence:  0.5,
	}
}
