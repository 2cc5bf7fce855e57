// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := GetLevel()
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetFormat("text")
		SetLevel(prev)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   LogLevel
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warning", LevelWarn, true},
		{"warn", LevelWarn, true},
		{"error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelWarn)

	Infof("hidden %d", 1)
	Debug("hidden")
	Warnf("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the level were written: %q", out)
	}
	if !strings.Contains(out, "shown 2") {
		t.Errorf("warning missing from output: %q", out)
	}
	if Enabled(LevelInfo) || !Enabled(LevelError) {
		t.Errorf("Enabled() disagrees with level %v", GetLevel())
	}
}

func TestWithFieldsJSON(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(LevelInfo)
	SetFormat("json")

	WithFields(Fields{"frequency": 440.0, "state": "listening"}).Info("pitch")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "pitch" || entry["state"] != "listening" || entry["frequency"] != 440.0 {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestLevelString(t *testing.T) {
	if LevelError.String() != "ERROR" || LogLevel(42).String() != "UNKNOWN" {
		t.Error("unexpected LogLevel.String() output")
	}
}
