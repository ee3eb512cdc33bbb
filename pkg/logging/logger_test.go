package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLogger_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("voltage analysis complete", PoleID("P1"), Int("violations", 3))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if entry.Level != "INFO" {
		t.Errorf("Expected INFO, got %s", entry.Level)
	}
	if entry.Message != "voltage analysis complete" {
		t.Errorf("unexpected message: %s", entry.Message)
	}
	if entry.Fields["pole_id"] != "P1" {
		t.Errorf("Expected pole_id=P1, got %v", entry.Fields)
	}
	if entry.Fields["violations"] != float64(3) {
		t.Errorf("Expected violations=3, got %v", entry.Fields["violations"])
	}
	if entry.Time == "" {
		t.Error("entry should carry a timestamp")
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), buf.String())
	}
}

func TestJSONLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("repair"), Site("ketumbi"))
	child.Info("cycle removed", ConductorID("A", "B"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if entry.Fields["component"] != "repair" || entry.Fields["site"] != "ketumbi" {
		t.Errorf("child fields missing: %v", entry.Fields)
	}
	if entry.Fields["conductor"] != "A->B" {
		t.Errorf("call-site field missing: %v", entry.Fields)
	}
}

func TestJSONLogger_CallSiteFieldOverridesPreset(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(String("phase", "pre"))
	child.Info("msg", String("phase", "post"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if entry.Fields["phase"] != "post" {
		t.Errorf("call-site field should win, got %v", entry.Fields["phase"])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"DEBUG":   DebugLevel,
		"info":    InfoLevel,
		"WARNING": WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestLevel_String(t *testing.T) {
	if DebugLevel.String() != "DEBUG" || ErrorLevel.String() != "ERROR" {
		t.Error("level names wrong")
	}
	if Level(42).String() != "UNKNOWN" {
		t.Error("out-of-range level should be UNKNOWN")
	}
}

func TestErrorField(t *testing.T) {
	f := Error(nil)
	if f.Key != "error" || f.Value != nil {
		t.Errorf("nil error field wrong: %+v", f)
	}
}

func TestTimedOperation_End(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	timer := StartTimer(logger, "repair complete", Count(4))
	timer.End()

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if entry.Message != "repair complete" {
		t.Errorf("unexpected message: %s", entry.Message)
	}
	if _, ok := entry.Fields["latency"]; !ok {
		t.Errorf("Expected a latency field, got %v", entry.Fields)
	}
	if entry.Fields["count"] != float64(4) {
		t.Errorf("Expected count=4, got %v", entry.Fields)
	}
}
