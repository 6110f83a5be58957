package detector

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestLandmarkSet_Presence(t *testing.T) {
	tests := []struct {
		name      string
		set       LandmarkSet
		wantPose  bool
		wantLeft  bool
		wantRight bool
		wantEmpty bool
	}{
		{
			name:      "empty frame",
			set:       LandmarkSet{},
			wantEmpty: true,
		},
		{
			name:     "pose only",
			set:      LandmarkSet{Pose: UpperBodyPose()},
			wantPose: true,
		},
		{
			name:     "left hand only",
			set:      LandmarkSet{LeftHand: OpenPalm(0)},
			wantLeft: true,
		},
		{
			name:      "everything",
			set:       FullLandmarkSet(),
			wantPose:  true,
			wantLeft:  true,
			wantRight: true,
		},
		{
			name:      "empty slices count as absent",
			set:       LandmarkSet{Pose: []Point3D{}, LeftHand: []Point3D{}},
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.HasPose(); got != tt.wantPose {
				t.Errorf("HasPose() = %v, want %v", got, tt.wantPose)
			}
			if got := tt.set.HasLeftHand(); got != tt.wantLeft {
				t.Errorf("HasLeftHand() = %v, want %v", got, tt.wantLeft)
			}
			if got := tt.set.HasRightHand(); got != tt.wantRight {
				t.Errorf("HasRightHand() = %v, want %v", got, tt.wantRight)
			}
			if got := tt.set.Empty(); got != tt.wantEmpty {
				t.Errorf("Empty() = %v, want %v", got, tt.wantEmpty)
			}
		})
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty set by default", func(t *testing.T) {
		mock := NewMockDetector()

		set, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !set.Empty() {
			t.Errorf("expected empty set, got %+v", set)
		}
	})

	t.Run("returns configured landmarks", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetLandmarks(FullLandmarkSet())

		set, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(set.Pose) != NumPose {
			t.Errorf("expected %d pose landmarks, got %d", NumPose, len(set.Pose))
		}
		if len(set.LeftHand) != NumLandmarks || len(set.RightHand) != NumLandmarks {
			t.Errorf("expected two hands of %d landmarks", NumLandmarks)
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetLandmarks(FullLandmarkSet())

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		set, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if !set.Empty() {
			t.Errorf("expected empty set when error is set, got %+v", set)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		if err := NewMockDetector().Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*HolisticDetector)(nil)
	})
}

func TestOpenPalm(t *testing.T) {
	palm := OpenPalm(0)

	if len(palm) != NumLandmarks {
		t.Fatalf("expected %d landmarks, got %d", NumLandmarks, len(palm))
	}

	t.Run("fingers are extended", func(t *testing.T) {
		tips := map[string][2]int{
			"index":  {IndexMCP, IndexTip},
			"middle": {MiddleMCP, MiddleTip},
			"ring":   {RingMCP, RingTip},
			"pinky":  {PinkyMCP, PinkyTip},
		}
		for name, idx := range tips {
			if extension := palm[idx[0]].Y - palm[idx[1]].Y; extension < 0.2 {
				t.Errorf("%s finger not extended enough (extension: %f)", name, extension)
			}
		}
	})

	t.Run("offset shifts x only", func(t *testing.T) {
		shifted := OpenPalm(0.1)
		for i := range palm {
			if diff := shifted[i].X - palm[i].X; diff < 0.0999 || diff > 0.1001 {
				t.Errorf("landmark %d: x shifted by %f, want 0.1", i, diff)
			}
			if shifted[i].Y != palm[i].Y || shifted[i].Z != palm[i].Z {
				t.Errorf("landmark %d: y/z should be unchanged", i)
			}
		}
	})
}

func TestParseHolisticResponse(t *testing.T) {
	t.Run("maps sources", func(t *testing.T) {
		line := `{"pose":[{"x":0.1,"y":0.2,"z":0.3}],"left_hand":[],"right_hand":[{"x":1,"y":2,"z":3}]}` + "\n"

		set, err := parseHolisticResponse([]byte(line))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(set.Pose) != 1 || set.Pose[0] != (Point3D{X: 0.1, Y: 0.2, Z: 0.3}) {
			t.Errorf("unexpected pose: %+v", set.Pose)
		}
		if set.LeftHand != nil {
			t.Errorf("empty left hand should be nil, got %+v", set.LeftHand)
		}
		if len(set.RightHand) != 1 {
			t.Errorf("expected right hand with 1 point, got %d", len(set.RightHand))
		}
	})

	t.Run("service error", func(t *testing.T) {
		_, err := parseHolisticResponse([]byte(`{"error":"model not loaded"}`))
		if err == nil || !strings.Contains(err.Error(), "model not loaded") {
			t.Errorf("expected service error, got %v", err)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := parseHolisticResponse([]byte("not json")); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestHolisticDetector_Args(t *testing.T) {
	d := &HolisticDetector{
		config:     DefaultConfig(),
		scriptPath: "/opt/slt/holistic_service.py",
	}

	args := d.args()
	want := []string{
		"/opt/slt/holistic_service.py",
		"--model-complexity=1",
		"--smooth-landmarks=true",
		"--min-detection-confidence=0.5",
		"--min-tracking-confidence=0.5",
	}

	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestCheckReady(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr string
	}{
		{name: "ready", line: `{"ready":true}`},
		{name: "model error", line: `{"error":"no module named mediapipe"}`, wantErr: "no module named mediapipe"},
		{name: "frame instead of handshake", line: `{"pose":[],"left_hand":[],"right_hand":[]}`, wantErr: "unexpected handshake"},
		{name: "garbage", line: "Traceback (most recent call last):", wantErr: "parse handshake"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkReady([]byte(tt.line))
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("checkReady() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("checkReady() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestHolisticDetector_PrepareWithoutService(t *testing.T) {
	d := &HolisticDetector{
		config:     DefaultConfig(),
		scriptPath: filepath.Join(t.TempDir(), "missing_service.py"),
	}
	defer d.Close()

	if err := d.Prepare(); err == nil {
		t.Fatal("Prepare() should fail when the service cannot start")
	}
	if d.started {
		t.Error("detector must not be marked started after a failed Prepare")
	}
}

func TestMockDetector_Prepare(t *testing.T) {
	m := NewMockDetector()
	if err := m.Prepare(); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	m.FailPrepare(errors.New("camera model missing"))
	if err := m.Prepare(); err == nil {
		t.Error("Prepare() should return the configured error")
	}
	if m.Prepares() != 2 {
		t.Errorf("Prepares() = %d, want 2", m.Prepares())
	}

	var _ Preparer = m
	var _ Preparer = (*HolisticDetector)(nil)
}
