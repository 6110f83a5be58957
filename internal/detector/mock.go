package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu         sync.Mutex
	set        LandmarkSet
	err        error
	prepareErr error
	calls      int
	prepares   int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetLandmarks sets the landmarks that will be returned by Detect.
func (m *MockDetector) SetLandmarks(set LandmarkSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set = set
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FailPrepare makes subsequent Prepare calls return err.
func (m *MockDetector) FailPrepare(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepareErr = err
}

// Prepare records the call and returns the error set by FailPrepare.
func (m *MockDetector) Prepare() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepares++
	return m.prepareErr
}

// Prepares returns how many times Prepare has been invoked.
func (m *MockDetector) Prepares() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prepares
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured landmarks or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (LandmarkSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return LandmarkSet{}, m.err
	}
	return m.set, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalm returns 21 hand landmarks of an open palm, shifted horizontally by offset.
// All fingers are extended upward.
func OpenPalm(offset float64) []Point3D {
	base := [NumLandmarks]Point3D{
		Wrist:     {X: 0.50, Y: 0.80, Z: 0.00},
		ThumbCMC:  {X: 0.55, Y: 0.75, Z: 0.02},
		ThumbMCP:  {X: 0.62, Y: 0.70, Z: 0.03},
		ThumbIP:   {X: 0.68, Y: 0.65, Z: 0.03},
		ThumbTip:  {X: 0.73, Y: 0.60, Z: 0.03},
		IndexMCP:  {X: 0.55, Y: 0.68, Z: 0.00},
		IndexPIP:  {X: 0.57, Y: 0.55, Z: 0.00},
		IndexDIP:  {X: 0.58, Y: 0.45, Z: 0.00},
		IndexTip:  {X: 0.58, Y: 0.35, Z: 0.00},
		MiddleMCP: {X: 0.50, Y: 0.66, Z: 0.00},
		MiddlePIP: {X: 0.50, Y: 0.52, Z: 0.00},
		MiddleDIP: {X: 0.50, Y: 0.40, Z: 0.00},
		MiddleTip: {X: 0.50, Y: 0.28, Z: 0.00},
		RingMCP:   {X: 0.45, Y: 0.68, Z: 0.00},
		RingPIP:   {X: 0.43, Y: 0.55, Z: 0.00},
		RingDIP:   {X: 0.42, Y: 0.45, Z: 0.00},
		RingTip:   {X: 0.42, Y: 0.35, Z: 0.00},
		PinkyMCP:  {X: 0.40, Y: 0.70, Z: 0.00},
		PinkyPIP:  {X: 0.37, Y: 0.60, Z: 0.00},
		PinkyDIP:  {X: 0.35, Y: 0.50, Z: 0.00},
		PinkyTip:  {X: 0.34, Y: 0.42, Z: 0.00},
	}

	points := make([]Point3D, NumLandmarks)
	for i, p := range base {
		points[i] = Point3D{X: p.X + offset, Y: p.Y, Z: p.Z}
	}
	return points
}

// UpperBodyPose returns a full 33-point pose with the shoulders, elbows and
// wrists placed in a neutral signing posture. Unused joints stay at zero.
func UpperBodyPose() []Point3D {
	pose := make([]Point3D, NumPose)
	pose[LeftShoulder] = Point3D{X: 0.65, Y: 0.45, Z: -0.20}
	pose[RightShoulder] = Point3D{X: 0.35, Y: 0.45, Z: -0.21}
	pose[LeftElbow] = Point3D{X: 0.72, Y: 0.65, Z: -0.15}
	pose[RightElbow] = Point3D{X: 0.28, Y: 0.66, Z: -0.16}
	pose[LeftWrist] = Point3D{X: 0.68, Y: 0.50, Z: -0.30}
	pose[RightWrist] = Point3D{X: 0.32, Y: 0.51, Z: -0.31}
	return pose
}

// FullLandmarkSet returns a frame with pose and both hands present.
func FullLandmarkSet() LandmarkSet {
	return LandmarkSet{
		Pose:      UpperBodyPose(),
		LeftHand:  OpenPalm(0.15),
		RightHand: OpenPalm(-0.15),
	}
}
