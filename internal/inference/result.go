// Package inference gates and performs remote sign classification.
package inference

import (
	"fmt"
	"time"
)

// LowConfidenceMarker is displayed when no prediction clears the threshold.
const LowConfidenceMarker = "Recognition failed or low confidence"

// State describes what a Result carries.
type State int

const (
	// StateNone means nothing has been evaluated in the current session.
	StateNone State = iota
	// StateLowConfidence means the last evaluation produced no acceptable label.
	StateLowConfidence
	// StateRecognized means the last evaluation produced a label above the threshold.
	StateRecognized
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateLowConfidence:
		return "low_confidence"
	case StateRecognized:
		return "recognized"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none", "":
		*s = StateNone
	case "low_confidence":
		*s = StateLowConfidence
	case "recognized":
		*s = StateRecognized
	default:
		return fmt.Errorf("unknown result state %q", text)
	}
	return nil
}

// Result is the outcome of one classification cycle.
type Result struct {
	State      State     `json:"state"`
	Label      string    `json:"label,omitempty"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// Recognized reports whether the result carries an accepted label.
func (r Result) Recognized() bool { return r.State == StateRecognized }

// String renders the result for display, e.g. "HELLO (92.0%)".
func (r Result) String() string {
	switch r.State {
	case StateRecognized:
		return fmt.Sprintf("%s (%.1f%%)", r.Label, r.Confidence*100)
	case StateLowConfidence:
		return LowConfidenceMarker
	default:
		return ""
	}
}
