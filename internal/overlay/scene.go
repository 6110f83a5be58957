// Package overlay turns detected landmarks into a drawable skeleton.
//
// Projection is display-only; it never feeds back into recognition.
package overlay

import (
	"fmt"
	"image/color"

	"github.com/Zeenjinn/sign-language-translation/internal/detector"
	"github.com/Zeenjinn/sign-language-translation/internal/feature"
)

// Source identifies which detector output a layer was built from.
type Source string

const (
	SourcePose      Source = "pose"
	SourceLeftHand  Source = "left_hand"
	SourceRightHand Source = "right_hand"
)

// Palette maps each source to its drawing color.
var Palette = map[Source]color.RGBA{
	SourceLeftHand:  {R: 128, G: 0, B: 128, A: 255}, // purple
	SourceRightHand: {R: 0, G: 0, B: 255, A: 255},   // blue
	SourcePose:      {R: 0, G: 128, B: 0, A: 255},   // green
}

// Hand topology: one chain per finger, then the palm outline.
var (
	fingerChains = [][]int{
		{detector.Wrist, detector.ThumbCMC, detector.ThumbMCP, detector.ThumbIP, detector.ThumbTip},
		{detector.IndexMCP, detector.IndexPIP, detector.IndexDIP, detector.IndexTip},
		{detector.MiddleMCP, detector.MiddlePIP, detector.MiddleDIP, detector.MiddleTip},
		{detector.RingMCP, detector.RingPIP, detector.RingDIP, detector.RingTip},
		{detector.PinkyMCP, detector.PinkyPIP, detector.PinkyDIP, detector.PinkyTip},
	}
	palmEdges = [][2]int{
		{detector.Wrist, detector.IndexMCP},
		{detector.IndexMCP, detector.MiddleMCP},
		{detector.MiddleMCP, detector.RingMCP},
		{detector.RingMCP, detector.PinkyMCP},
		{detector.PinkyMCP, detector.Wrist},
	}
	poseEdges = [][2]int{
		{detector.LeftShoulder, detector.LeftElbow},
		{detector.LeftElbow, detector.LeftWrist},
		{detector.RightShoulder, detector.RightElbow},
		{detector.RightElbow, detector.RightWrist},
		{detector.LeftShoulder, detector.RightShoulder},
	}
)

// Point is a normalized image position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment connects two points.
type Segment struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

// Layer is everything drawn for one source.
type Layer struct {
	Source   Source    `json:"source"`
	Color    string    `json:"color"`
	Points   []Point   `json:"points"`
	Segments []Segment `json:"segments"`
}

// Scene is the full overlay for one frame.
type Scene struct {
	Layers []Layer `json:"layers"`
}

// Empty reports whether there is nothing to draw.
func (s Scene) Empty() bool { return len(s.Layers) == 0 }

// Project builds the overlay for set. Hands are drawn before the pose, left
// before right. Sources with an unexpected number of points are skipped.
func Project(set detector.LandmarkSet) Scene {
	var scene Scene

	if layer, ok := projectHand(set.LeftHand, SourceLeftHand); ok {
		scene.Layers = append(scene.Layers, layer)
	}
	if layer, ok := projectHand(set.RightHand, SourceRightHand); ok {
		scene.Layers = append(scene.Layers, layer)
	}
	if layer, ok := projectPose(set.Pose); ok {
		scene.Layers = append(scene.Layers, layer)
	}

	return scene
}

func projectHand(hand []detector.Point3D, source Source) (Layer, bool) {
	if len(hand) != detector.NumLandmarks {
		return Layer{}, false
	}

	layer := newLayer(source)
	for _, chain := range fingerChains {
		for i := 1; i < len(chain); i++ {
			layer.Segments = append(layer.Segments, segment(hand[chain[i-1]], hand[chain[i]]))
		}
	}
	for _, edge := range palmEdges {
		layer.Segments = append(layer.Segments, segment(hand[edge[0]], hand[edge[1]]))
	}
	for _, p := range hand {
		layer.Points = append(layer.Points, point(p))
	}
	return layer, true
}

func projectPose(pose []detector.Point3D) (Layer, bool) {
	joints, ok := poseJoints(pose)
	if !ok {
		return Layer{}, false
	}

	layer := newLayer(SourcePose)
	for _, edge := range poseEdges {
		layer.Segments = append(layer.Segments, segment(joints[edge[0]], joints[edge[1]]))
	}
	for _, idx := range []int{
		detector.LeftShoulder, detector.RightShoulder,
		detector.LeftElbow, detector.RightElbow,
		detector.LeftWrist, detector.RightWrist,
	} {
		layer.Points = append(layer.Points, point(joints[idx]))
	}
	return layer, true
}

// poseJoints indexes the arm joints by their pose topology index. A six-point
// pose is taken to be in feature.PoseJointIndices order.
func poseJoints(pose []detector.Point3D) (map[int]detector.Point3D, bool) {
	joints := make(map[int]detector.Point3D, feature.PoseJoints)

	switch {
	case len(pose) == feature.PoseJoints:
		for i, idx := range feature.PoseJointIndices {
			joints[idx] = pose[i]
		}
	case len(pose) > detector.RightWrist:
		for _, idx := range feature.PoseJointIndices {
			joints[idx] = pose[idx]
		}
	default:
		return nil, false
	}
	return joints, true
}

func newLayer(source Source) Layer {
	c := Palette[source]
	return Layer{Source: source, Color: hexColor(c)}
}

func point(p detector.Point3D) Point { return Point{X: p.X, Y: p.Y} }

func segment(a, b detector.Point3D) Segment {
	return Segment{From: point(a), To: point(b)}
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
