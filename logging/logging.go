package logging

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync/atomic"
)

// ANSI color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorYellow = "\033[33m"
	ColorBold   = "\033[1m"
)

// Level represents log levels
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name ("debug", "info", "warn", "error", "fatal") to a Level.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// Fields represents structured logging fields
type Fields map[string]any

// Logger defines the interface that the library expects for logging
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(err error, msg string, fields ...Fields)
	Fatal(err error, msg string, fields ...Fields)

	// WithFields returns a logger with preset fields
	WithFields(fields Fields) Logger

	// WithContext returns a logger carrying the fields stored in ctx
	WithContext(ctx context.Context) Logger

	// SetLevel sets the minimum log level
	SetLevel(level Level)
}

type fieldsKey struct{}

// ContextWithFields returns a context whose loggers (via WithContext) include fields.
func ContextWithFields(ctx context.Context, fields Fields) context.Context {
	existing, _ := ctx.Value(fieldsKey{}).(Fields)
	return context.WithValue(ctx, fieldsKey{}, mergeFields(existing, fields))
}

func fieldsFromContext(ctx context.Context) (Fields, bool) {
	if ctx == nil {
		return nil, false
	}
	fields, ok := ctx.Value(fieldsKey{}).(Fields)
	return fields, ok
}

// mergeFields flattens base and extra into a new map; later keys win
func mergeFields(base Fields, extra ...Fields) Fields {
	n := len(base)
	for _, f := range extra {
		n += len(f)
	}
	merged := make(Fields, n)
	maps.Copy(merged, base)
	for _, f := range extra {
		maps.Copy(merged, f)
	}
	return merged
}

// levelVar is a minimum level shared by a logger and every child derived
// from it. Worker goroutines read it while the CLI may still be setting it.
type levelVar struct {
	v atomic.Int32
}

func newLevelVar(level Level) *levelVar {
	lv := &levelVar{}
	lv.set(level)
	return lv
}

func (lv *levelVar) enabled(level Level) bool { return level >= Level(lv.v.Load()) }
func (lv *levelVar) set(level Level)          { lv.v.Store(int32(level)) }

// loggerBox lets the global logger be swapped atomically whatever its
// concrete type.
type loggerBox struct{ Logger }

var global atomic.Pointer[loggerBox]

func init() {
	global.Store(&loggerBox{NewDefaultLogger()})
}

// SetGlobalLogger replaces the logger components derive from. nil installs
// a NoOpLogger. Loggers already derived keep writing to the old one.
func SetGlobalLogger(logger Logger) {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	global.Store(&loggerBox{logger})
}

// GetGlobalLogger returns the current global logger
func GetGlobalLogger() Logger {
	return global.Load().Logger
}

// WithFields derives a component logger from the global logger
func WithFields(fields Fields) Logger {
	return GetGlobalLogger().WithFields(fields)
}
