// Package testdata holds recorded landmark frames and sequences shared by
// tests.
package testdata

import (
	"embed"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/Zeenjinn/sign-language-translation/internal/detector"
)

//go:embed landmarks/*.json
var landmarksFS embed.FS

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Sequence is a recorded run of frames for one sign.
type Sequence struct {
	Label  string                 `json:"label"`
	Frames []detector.LandmarkSet `json:"frames"`
}

// LoadFrame loads a single landmark frame by name, e.g. "full.json".
func LoadFrame(name string) (detector.LandmarkSet, error) {
	var set detector.LandmarkSet

	data, err := landmarksFS.ReadFile("landmarks/" + name)
	if err != nil {
		return set, fmt.Errorf("load frame %s: %w", name, err)
	}
	if err := json.Unmarshal(data, &set); err != nil {
		return set, fmt.Errorf("decode frame %s: %w", name, err)
	}
	return set, nil
}

// LoadSequence loads a recorded sign sequence by name, e.g. "wave.json".
func LoadSequence(name string) (*Sequence, error) {
	data, err := landmarksFS.ReadFile("landmarks/" + name)
	if err != nil {
		return nil, fmt.Errorf("load sequence %s: %w", name, err)
	}

	var seq Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("decode sequence %s: %w", name, err)
	}
	return &seq, nil
}

func mustFrame(name string) detector.LandmarkSet {
	set, err := LoadFrame(name)
	if err != nil {
		panic(err)
	}
	return set
}

// FullLandmarkSet is a frame with a 33-point pose and both hands.
func FullLandmarkSet() detector.LandmarkSet { return mustFrame("full.json") }

// LeftHandOnly is a frame where only the left hand was detected.
func LeftHandOnly() detector.LandmarkSet { return mustFrame("left_hand_only.json") }

// RightHandOnly is a frame where only the right hand was detected.
func RightHandOnly() detector.LandmarkSet { return mustFrame("right_hand_only.json") }

// CompactPose is a frame whose pose carries only the six arm joints.
func CompactPose() detector.LandmarkSet { return mustFrame("compact_pose.json") }

// Empty is a frame where nothing was detected.
func Empty() detector.LandmarkSet { return mustFrame("empty.json") }

// MalformedHand is a frame whose left hand has too few points.
func MalformedHand() detector.LandmarkSet { return mustFrame("malformed_hand.json") }
