// Package plugin discovers and runs external announcement hooks. A plugin is a
// directory holding a plugin.json manifest and an executable that reads one
// JSON Request on stdin and writes one JSON Response on stdout.
package plugin

import (
	stdjson "encoding/json"
	"slices"
)

// ActionAnnounce is sent when a sign has been recognized.
const ActionAnnounce = "announce"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Description  string             `json:"description"`
	Executable   string             `json:"executable"`
	Actions      []string           `json:"actions"`
	ConfigSchema stdjson.RawMessage `json:"configSchema,omitempty"`
}

// Request is sent to a plugin on stdin.
type Request struct {
	Action     string             `json:"action"`
	Sign       string             `json:"sign,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
	Session    string             `json:"session,omitempty"`
	Config     stdjson.RawMessage `json:"config,omitempty"`
	Params     stdjson.RawMessage `json:"params,omitempty"`
}

// Response is read from a plugin's stdout.
type Response struct {
	Success bool               `json:"success"`
	Error   string             `json:"error,omitempty"`
	Data    stdjson.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Supports reports whether the plugin declares action.
func (p *Plugin) Supports(action string) bool {
	return slices.Contains(p.Manifest.Actions, action)
}
