package main

import (
	"reflect"
	"runtime"
	"testing"
)

func TestSynthArgs(t *testing.T) {
	tests := []struct {
		name   string
		engine string
		cfg    Config
		want   []string
	}{
		{"say plain", "say", Config{}, []string{"HELLO"}},
		{"say voice and rate", "say", Config{Voice: "Alex", Rate: 180}, []string{"-v", "Alex", "-r", "180", "HELLO"}},
		{"espeak rate", "espeak", Config{Rate: 150}, []string{"-s", "150", "HELLO"}},
		{"spd-say waits", "spd-say", Config{}, []string{"--wait", "HELLO"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := synthArgs(tt.engine, "HELLO", tt.cfg); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("synthArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSynthesizers(t *testing.T) {
	got := synthesizers()
	if runtime.GOOS == "darwin" {
		if len(got) != 1 || got[0] != "say" {
			t.Errorf("synthesizers() = %v", got)
		}
		return
	}
	if len(got) == 0 || got[0] != "espeak" {
		t.Errorf("synthesizers() = %v", got)
	}
}
