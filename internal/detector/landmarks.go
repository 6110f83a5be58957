// Package detector provides landmark detection interfaces and types for sign recognition.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Pose landmark indices used by the recognizer, following the MediaPipe pose topology.
const (
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	NumPose       = 33
)

// Point3D represents a single detected keypoint. X and Y are normalized to the
// image size; Z is depth relative to the landmark's reference point.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LandmarkSet is one frame of detector output. Any of the three sources may be
// nil when the detector found nothing for it.
type LandmarkSet struct {
	Pose      []Point3D `json:"pose,omitempty"`
	LeftHand  []Point3D `json:"leftHand,omitempty"`
	RightHand []Point3D `json:"rightHand,omitempty"`
}

// HasPose reports whether pose landmarks are present.
func (s LandmarkSet) HasPose() bool { return len(s.Pose) > 0 }

// HasLeftHand reports whether left hand landmarks are present.
func (s LandmarkSet) HasLeftHand() bool { return len(s.LeftHand) > 0 }

// HasRightHand reports whether right hand landmarks are present.
func (s LandmarkSet) HasRightHand() bool { return len(s.RightHand) > 0 }

// Empty reports whether the detector found nothing in the frame.
func (s LandmarkSet) Empty() bool {
	return !s.HasPose() && !s.HasLeftHand() && !s.HasRightHand()
}
