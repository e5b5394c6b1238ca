/*-------------------------------------------------------------------------
 *
 * pgEdge Hybrid Search
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package logging writes structured JSON log lines with a keyvals API.
// Output goes to stderr so it never mixes with command results on
// stdout. The minimum level comes from PGEDGE_HYBRID_LOG_LEVEL and
// defaults to error, keeping CLI output quiet unless asked.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log message
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

const envLogLevel = "PGEDGE_HYBRID_LOG_LEVEL"

var (
	mu       sync.Mutex
	minLevel = LevelError
	output   io.Writer = os.Stderr
)

func init() {
	if level, ok := ParseLevel(os.Getenv(envLogLevel)); ok {
		minLevel = level
	}
}

// ParseLevel maps a level name to a Level, accepting "warning" as an
// alias for "warn"
func ParseLevel(name string) (Level, bool) {
	switch strings.ToLower(name) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelError, false
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SetLevel sets the minimum level to emit
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = level
}

// GetLevel returns the current minimum level
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return minLevel
}

// SetOutput redirects log lines, mainly so tests can capture them
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

type entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func emit(level Level, message string, keyvals ...any) {
	mu.Lock()
	defer mu.Unlock()
	if level < minLevel {
		return
	}

	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
	}
	if len(keyvals) > 1 {
		e.Fields = make(map[string]any, len(keyvals)/2)
		// a trailing key without a value is dropped
		for i := 0; i+1 < len(keyvals); i += 2 {
			e.Fields[fmt.Sprintf("%v", keyvals[i])] = keyvals[i+1]
		}
	}

	line, err := json.Marshal(e)
	if err != nil {
		fmt.Fprintf(output, "ERROR: failed to marshal log entry: %v\n", err)
		return
	}
	fmt.Fprintln(output, string(line))
}

// Debug logs a debug-level message with structured fields
func Debug(message string, keyvals ...any) {
	emit(LevelDebug, message, keyvals...)
}

// Info logs an info-level message with structured fields
func Info(message string, keyvals ...any) {
	emit(LevelInfo, message, keyvals...)
}

// Warn logs a warning-level message with structured fields
func Warn(message string, keyvals ...any) {
	emit(LevelWarn, message, keyvals...)
}

// Error logs an error-level message with structured fields
func Error(message string, keyvals ...any) {
	emit(LevelError, message, keyvals...)
}
