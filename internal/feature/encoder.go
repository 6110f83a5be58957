// Package feature encodes per-frame landmark sets into fixed-width vectors.
package feature

import (
	"errors"
	"fmt"
	"math"

	"github.com/Zeenjinn/sign-language-translation/internal/detector"
)

// Vector layout constants.
const (
	// Coords is the number of values emitted per landmark (x, y, z).
	Coords = 3
	// PoseJoints is the number of pose joints kept from the detector output.
	PoseJoints = 6
	// PoseWidth is the width of the pose segment.
	PoseWidth = PoseJoints * Coords
	// HandWidth is the width of one hand slot.
	HandWidth = detector.NumLandmarks * Coords
	// Width is the total vector width: pose segment followed by two hand slots.
	Width = PoseWidth + 2*HandWidth
)

// ErrMalformed is returned for landmark sets that cannot be encoded.
// Such frames must be dropped rather than buffered.
var ErrMalformed = errors.New("malformed landmarks")

// PoseJointIndices are the pose landmarks kept, in vector order:
// left shoulder, left elbow, left wrist, right shoulder, right elbow, right wrist.
var PoseJointIndices = [PoseJoints]int{
	detector.LeftShoulder,
	detector.LeftElbow,
	detector.LeftWrist,
	detector.RightShoulder,
	detector.RightElbow,
	detector.RightWrist,
}

// Vector is the encoding of one frame. A valid Vector always has exactly Width entries.
type Vector []float64

// Pose returns the pose segment.
func (v Vector) Pose() []float64 { return v[:PoseWidth] }

// FirstHand returns the first hand slot.
func (v Vector) FirstHand() []float64 { return v[PoseWidth : PoseWidth+HandWidth] }

// SecondHand returns the second hand slot.
func (v Vector) SecondHand() []float64 { return v[PoseWidth+HandWidth:] }

// Encode converts one frame of landmarks into a Vector.
//
// Absent sources are zero-filled in place so every position keeps its meaning
// across frames. When exactly one hand is present it is written to the first
// hand slot whichever side it is on, and the second slot is zero.
func Encode(set detector.LandmarkSet) (Vector, error) {
	v := make(Vector, 0, Width)

	pose, err := selectPose(set.Pose)
	if err != nil {
		return nil, err
	}
	if pose == nil {
		v = appendZeros(v, PoseWidth)
	} else {
		v = appendPoints(v, pose)
	}

	left, right := set.LeftHand, set.RightHand
	for _, hand := range [][]detector.Point3D{left, right} {
		if len(hand) > 0 && len(hand) != detector.NumLandmarks {
			return nil, fmt.Errorf("%w: hand has %d landmarks, want %d", ErrMalformed, len(hand), detector.NumLandmarks)
		}
	}

	switch {
	case len(left) > 0 && len(right) > 0:
		v = appendPoints(v, left)
		v = appendPoints(v, right)
	case len(left) > 0:
		v = appendPoints(v, left)
		v = appendZeros(v, HandWidth)
	case len(right) > 0:
		v = appendPoints(v, right)
		v = appendZeros(v, HandWidth)
	default:
		v = appendZeros(v, 2*HandWidth)
	}

	if err := Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks that v has exactly Width finite entries.
func Validate(v Vector) error {
	if len(v) != Width {
		return fmt.Errorf("%w: vector has %d values, want %d", ErrMalformed, len(v), Width)
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: non-finite value at %d", ErrMalformed, i)
		}
	}
	return nil
}

// selectPose picks the tracked joints. It accepts either the full detector pose,
// indexed by joint, or a pose already reduced to the PoseJoints in vector order.
// A nil result with a nil error means the pose is absent.
func selectPose(pose []detector.Point3D) ([]detector.Point3D, error) {
	switch {
	case len(pose) == 0:
		return nil, nil
	case len(pose) == PoseJoints:
		return pose, nil
	case len(pose) > detector.RightWrist:
		selected := make([]detector.Point3D, PoseJoints)
		for i, idx := range PoseJointIndices {
			selected[i] = pose[idx]
		}
		return selected, nil
	default:
		return nil, fmt.Errorf("%w: pose has %d landmarks", ErrMalformed, len(pose))
	}
}

func appendPoints(v Vector, points []detector.Point3D) Vector {
	for _, p := range points {
		v = append(v, p.X, p.Y, p.Z)
	}
	return v
}

func appendZeros(v Vector, n int) Vector {
	for i := 0; i < n; i++ {
		v = append(v, 0)
	}
	return v
}
