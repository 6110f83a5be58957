package detector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gocv.io/x/gocv"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// holisticScript is the name of the Python MediaPipe Holistic service.
const holisticScript = "holistic_service.py"

// idleShutdown is how long the subprocess may sit unused before it is stopped.
const idleShutdown = 30 * time.Second

// HolisticDetector implements Detector using a Python MediaPipe Holistic subprocess.
//
// Protocol: each frame is written to stdin as a 4-byte big-endian length followed
// by JPEG bytes; the service answers with one JSON line per frame.
type HolisticDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	idleTimer  *time.Timer
}

// NewHolisticDetector creates a new Holistic detector.
// The Python process is started by Prepare or lazily on first detection.
func NewHolisticDetector(config Config) (*HolisticDetector, error) {
	scriptPath := findHolisticScript()
	if scriptPath == "" {
		return nil, fmt.Errorf("%s not found", holisticScript)
	}

	return &HolisticDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect analyzes a frame and returns the detected landmarks.
func (d *HolisticDetector) Detect(frame *gocv.Mat) (LandmarkSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return LandmarkSet{}, fmt.Errorf("empty frame")
	}

	if err := d.ensureStarted(); err != nil {
		return LandmarkSet{}, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return LandmarkSet{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return LandmarkSet{}, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return LandmarkSet{}, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return LandmarkSet{}, fmt.Errorf("read response: %w", err)
	}

	set, err := parseHolisticResponse(line)
	if err != nil {
		return LandmarkSet{}, err
	}

	d.resetIdleTimer()

	return set, nil
}

// Prepare starts the Python service and waits for its ready line, so a missing
// interpreter or MediaPipe install is reported before any frame is read.
func (d *HolisticDetector) Prepare() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return err
	}
	d.resetIdleTimer()
	return nil
}

// Close shuts down the Python process.
func (d *HolisticDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// args renders the pass-through configuration as command-line flags.
func (d *HolisticDetector) args() []string {
	return []string{
		d.scriptPath,
		"--model-complexity=" + strconv.Itoa(d.config.ModelComplexity),
		"--smooth-landmarks=" + strconv.FormatBool(d.config.SmoothLandmarks),
		"--min-detection-confidence=" + strconv.FormatFloat(d.config.MinDetectionConfidence, 'f', -1, 64),
		"--min-tracking-confidence=" + strconv.FormatFloat(d.config.MinTrackingConfidence, 'f', -1, 64),
	}
}

func (d *HolisticDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d.cmd = exec.Command(pythonPath, d.args()...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start holistic service: %w", err)
	}

	reader := bufio.NewReader(stdout)
	line, err := reader.ReadBytes('\n')
	if err == nil {
		err = checkReady(line)
	}
	if err != nil {
		stdin.Close()
		d.cmd.Process.Kill()
		d.cmd.Wait()
		d.cmd = nil
		return fmt.Errorf("holistic service not ready: %w", err)
	}

	d.stdin = stdin
	d.stdout = reader
	d.started = true

	return nil
}

func (d *HolisticDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *HolisticDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// holisticResponse is the JSON line emitted by the Python service.
type holisticResponse struct {
	Pose      []Point3D `json:"pose"`
	LeftHand  []Point3D `json:"left_hand"`
	RightHand []Point3D `json:"right_hand"`
	Ready     bool      `json:"ready,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// checkReady validates the first line the service writes after loading its model.
func checkReady(line []byte) error {
	var resp holisticResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("parse handshake: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("holistic service: %s", resp.Error)
	}
	if !resp.Ready {
		return fmt.Errorf("unexpected handshake %q", line)
	}
	return nil
}

func parseHolisticResponse(line []byte) (LandmarkSet, error) {
	var resp holisticResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return LandmarkSet{}, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return LandmarkSet{}, fmt.Errorf("holistic service: %s", resp.Error)
	}

	return LandmarkSet{
		Pose:      nilIfEmpty(resp.Pose),
		LeftHand:  nilIfEmpty(resp.LeftHand),
		RightHand: nilIfEmpty(resp.RightHand),
	}, nil
}

func nilIfEmpty(points []Point3D) []Point3D {
	if len(points) == 0 {
		return nil
	}
	return points
}

func findHolisticScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", holisticScript),
		filepath.Join("..", "scripts", holisticScript),
		filepath.Join(execDir, "scripts", holisticScript),
		filepath.Join(os.Getenv("HOME"), ".slt", "scripts", holisticScript),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".slt/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}
