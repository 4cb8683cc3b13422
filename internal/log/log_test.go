package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" ERROR ", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelError)
	defer SetLevel(LevelInfo)

	Info("hidden")
	Error("drop ignored", errors.New("bad payload"), "session_id", 7, "note", "two words")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line logged at error level: %q", out)
	}
	for _, want := range []string{"[ERROR] drop ignored", "err=\"bad payload\"", "session_id=7", "note=\"two words\""} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
