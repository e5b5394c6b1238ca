/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

// capture redirects log output to a buffer for the duration of a test
func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	originalLevel := GetLevel()
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(originalLevel)
	})
	return &buf
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Level
		ok       bool
	}{
		{name: "debug", input: "debug", expected: LevelDebug, ok: true},
		{name: "mixed case", input: "Info", expected: LevelInfo, ok: true},
		{name: "warning alias", input: "warning", expected: LevelWarn, ok: true},
		{name: "error", input: "error", expected: LevelError, ok: true},
		{name: "unknown", input: "verbose", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLevel(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseLevel(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEmitsStructuredJSON(t *testing.T) {
	buf := capture(t, LevelDebug)

	Info("query complete", "table", "embeddings", "rows", 7, "hybrid", true)

	var e entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("output is not JSON: %v\noutput: %s", err, buf.String())
	}
	if e.Level != "INFO" || e.Message != "query complete" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Fields["table"] != "embeddings" || e.Fields["rows"] != float64(7) || e.Fields["hybrid"] != true {
		t.Errorf("unexpected fields: %v", e.Fields)
	}
	if e.Timestamp == "" {
		t.Error("expected a timestamp")
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug("below threshold")
	Info("below threshold")
	if buf.Len() > 0 {
		t.Fatalf("expected no output below threshold, got %s", buf.String())
	}

	Warn("at threshold")
	Error("above threshold")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "WARN") || !strings.Contains(lines[1], "ERROR") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestDanglingKeyIsDropped(t *testing.T) {
	buf := capture(t, LevelDebug)

	Info("odd keyvals", "key1", "value1", "key2")

	var e entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if e.Fields["key1"] != "value1" {
		t.Errorf("expected key1, got %v", e.Fields)
	}
	if _, exists := e.Fields["key2"]; exists {
		t.Error("a key without a value must be dropped")
	}
}

func TestNoFieldsOmitsFieldsKey(t *testing.T) {
	buf := capture(t, LevelDebug)

	Debug("bare message")

	if strings.Contains(buf.String(), "\"fields\"") {
		t.Errorf("expected fields to be omitted, got %s", buf.String())
	}
}
