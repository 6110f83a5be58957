// Package main provides a plugin that speaks recognized signs aloud.
// It uses "say" on macOS and "espeak" or "spd-say" elsewhere.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action     string          `json:"action"`
	Sign       string          `json:"sign"`
	Confidence float64         `json:"confidence"`
	Session    string          `json:"session"`
	Config     json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the optional per-install plugin configuration.
type Config struct {
	Voice string `json:"voice"`
	Rate  int    `json:"rate"`
}

var errNoSynthesizer = errors.New("no speech synthesizer found")

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "announce" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	text := strings.TrimSpace(req.Sign)
	if text == "" {
		writeErrorResponse("nothing to announce")
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	engine, err := speak(text, cfg)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("announce failed: %v", err))
		return
	}

	data, _ := json.Marshal(map[string]string{"engine": engine, "text": text})
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

// speak runs the first available synthesizer and returns its name.
func speak(text string, cfg Config) (string, error) {
	for _, name := range synthesizers() {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}

		out, err := exec.Command(path, synthArgs(name, text, cfg)...).CombinedOutput()
		if err != nil {
			return name, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
		}
		return name, nil
	}
	return "", errNoSynthesizer
}

func synthesizers() []string {
	if runtime.GOOS == "darwin" {
		return []string{"say"}
	}
	return []string{"espeak", "espeak-ng", "spd-say"}
}

func synthArgs(name, text string, cfg Config) []string {
	var args []string
	switch name {
	case "say":
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			args = append(args, "-r", fmt.Sprint(cfg.Rate))
		}
	case "espeak", "espeak-ng":
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			args = append(args, "-s", fmt.Sprint(cfg.Rate))
		}
	case "spd-say":
		args = append(args, "--wait")
		if cfg.Rate > 0 {
			args = append(args, "-r", fmt.Sprint(cfg.Rate))
		}
	}
	return append(args, text)
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}
