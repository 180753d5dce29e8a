// Package logging provides the leveled logger shared by the input core and its hosts.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of a log message.
type Level int

const (
	// LevelDebug is for detailed tracing of the input pipeline.
	LevelDebug Level = iota
	// LevelInfo is for general informational messages.
	LevelInfo
	// LevelWarn is for configuration problems that were recovered from.
	LevelWarn
	// LevelError is for failures such as a panicking subscriber.
	LevelError
	// LevelOff disables all output.
	LevelOff
)

// String returns the string representation of the log level.
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
	case LevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a Level. Unknown values map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "off", "none":
		return LevelOff
	default:
		return LevelInfo
	}
}

// Logger is the leveled logging interface consumed by the input core.
//
// Callers on hot paths check Enabled before building arguments so that
// disabled tracing costs a single comparison.
type Logger interface {
	Enabled(level Level) bool
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	WithField(key string, value any) Logger
	WithComponent(component string) Logger
}

// Config configures a StdLogger.
type Config struct {
	// Level is the minimum log level to output.
	Level Level
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Prefix is prepended to all log messages.
	Prefix string
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
		Prefix: "spatialcms",
	}
}

// StdLogger writes formatted lines to an io.Writer.
type StdLogger struct {
	mu     *sync.Mutex
	level  Level
	output io.Writer
	prefix string
	fields map[string]any
	now    func() time.Time
}

// New creates a new logger with the given configuration.
func New(cfg Config) *StdLogger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	return &StdLogger{
		mu:     &sync.Mutex{},
		level:  cfg.Level,
		output: cfg.Output,
		prefix: cfg.Prefix,
		fields: make(map[string]any),
		now:    time.Now,
	}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return New(Config{Level: LevelOff, Output: io.Discard})
}

// Enabled reports whether messages at level would be written.
func (l *StdLogger) Enabled(level Level) bool {
	return level >= l.level && l.level != LevelOff
}

// SetLevel sets the minimum log level.
func (l *StdLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// WithField returns a new logger with the given field added.
func (l *StdLogger) WithField(key string, value any) Logger {
	fields := make(map[string]any, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	fields[key] = value

	clone := *l
	clone.fields = fields
	return &clone
}

// WithComponent returns a new logger with the component field set.
func (l *StdLogger) WithComponent(component string) Logger {
	return l.WithField("component", component)
}

// Debug logs a debug message.
func (l *StdLogger) Debug(msg string, args ...any) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *StdLogger) Info(msg string, args ...any) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *StdLogger) Warn(msg string, args ...any) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *StdLogger) Error(msg string, args ...any) {
	l.log(LevelError, msg, args...)
}

func (l *StdLogger) log(level Level, msg string, args ...any) {
	if !l.Enabled(level) {
		return
	}

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	var b strings.Builder
	b.WriteString(l.now().Format("2006-01-02T15:04:05.000"))
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	if l.prefix != "" {
		b.WriteString(l.prefix)
		b.WriteString(": ")
	}
	b.WriteString(msg)

	if len(l.fields) > 0 {
		keys := make([]string, 0, len(l.fields))
		for k := range l.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, l.fields[k])
		}
		b.WriteString("}")
	}
	b.WriteString("\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.output, b.String())
}
