// Package logging provides a small leveled logger on top of the standard log package.
package logging

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// Level is the minimum severity a logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ParseLevel maps a config value to a Level. Unknown values fall back to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Fields are key=value pairs appended to a log line.
type Fields map[string]any

// Logger is the logging interface used across the application.
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)
	WithPrefix(prefix string) Logger
}

// StandardLogger writes through the standard log package.
type StandardLogger struct {
	prefix string
	level  Level
	out    *log.Logger
}

// New creates a StandardLogger writing to the default log output.
func New(prefix string, level Level) *StandardLogger {
	return &StandardLogger{prefix: prefix, level: level}
}

// NewWithLogger creates a StandardLogger writing to the given *log.Logger.
func NewWithLogger(prefix string, level Level, out *log.Logger) *StandardLogger {
	return &StandardLogger{prefix: prefix, level: level, out: out}
}

func (l *StandardLogger) Debug(msg string, fields Fields) { l.log(LevelDebug, msg, fields) }
func (l *StandardLogger) Info(msg string, fields Fields)  { l.log(LevelInfo, msg, fields) }
func (l *StandardLogger) Warn(msg string, fields Fields)  { l.log(LevelWarn, msg, fields) }
func (l *StandardLogger) Error(msg string, fields Fields) { l.log(LevelError, msg, fields) }

// WithPrefix returns a logger sharing level and output with a new component prefix.
func (l *StandardLogger) WithPrefix(prefix string) Logger {
	return &StandardLogger{prefix: prefix, level: l.level, out: l.out}
}

func (l *StandardLogger) log(level Level, msg string, fields Fields) {
	if level < l.level {
		return
	}
	line := fmt.Sprintf("[%s] [%s] %s%s", level, l.prefix, msg, formatFields(fields))
	if l.out != nil {
		l.out.Print(line)
		return
	}
	log.Print(line)
}

// formatFields renders fields sorted by key so output is stable.
func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

// NoopLogger discards everything.
type NoopLogger struct{}

func (NoopLogger) Debug(string, Fields)        {}
func (NoopLogger) Info(string, Fields)         {}
func (NoopLogger) Warn(string, Fields)         {}
func (NoopLogger) Error(string, Fields)        {}
func (n NoopLogger) WithPrefix(string) Logger { return n }

// NewNoop returns a logger that discards everything.
func NewNoop() Logger { return NoopLogger{} }
