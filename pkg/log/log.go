// Package log provides a thin wrapper around the standard library logger
// with named component loggers and debug gating.
//
// Every subsystem (search, ingest, api, individual providers) obtains a
// logger via ForService(name); messages are prefixed with "[name>]" so
// interleaved output stays attributable. Debug logging can be enabled
// globally or per component.
//
// Usage:
//
//	l := log.ForService("sqlite")
//	l.Infof("indexed %d documents", n)
//	l.Debugf("raw query: %s", q) // only prints if debug enabled
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sync"
	"sync/atomic"
)

// Level names used in output.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelDebug = "DEBUG"
)

// Logger is a named logger with leveled helpers.
type Logger struct {
	name string
	std  *stdlog.Logger
}

// writerHolder wraps an io.Writer so atomic.Value always stores the same
// concrete type when the output changes between runs and tests.
type writerHolder struct {
	w io.Writer
}

var (
	globalDebug  atomic.Bool
	serviceDebug sync.Map // map[string]*atomic.Bool
	loggers      sync.Map // map[string]*Logger
	outputWriter atomic.Value
)

func init() {
	outputWriter.Store(writerHolder{w: os.Stderr})
}

// ForService returns (and memoizes) the named logger for a component or
// provider instance. The name should be stable.
func ForService(name string) *Logger {
	if name == "" {
		name = "unknown"
	}
	if l, ok := loggers.Load(name); ok {
		return l.(*Logger)
	}
	current := outputWriter.Load().(writerHolder).w
	logger := &Logger{
		name: name,
		std:  stdlog.New(current, "", stdlog.LstdFlags|stdlog.Lmicroseconds),
	}
	actual, _ := loggers.LoadOrStore(name, logger)
	return actual.(*Logger)
}

// SetGlobalDebug enables or disables debug logging for all components.
func SetGlobalDebug(enabled bool) {
	globalDebug.Store(enabled)
}

// EnableDebugFor enables debug logging for one component only.
func EnableDebugFor(name string) {
	if name == "" {
		return
	}
	val, _ := serviceDebug.LoadOrStore(name, &atomic.Bool{})
	val.(*atomic.Bool).Store(true)
}

// DebugEnabledFor reports whether debug output is active for the component,
// either globally or specifically.
func DebugEnabledFor(name string) bool {
	if globalDebug.Load() {
		return true
	}
	if val, ok := serviceDebug.Load(name); ok {
		return val.(*atomic.Bool).Load()
	}
	return false
}

// SetOutput redirects all current and future loggers to w.
func SetOutput(w io.Writer) {
	if w == nil {
		return
	}
	outputWriter.Store(writerHolder{w: w})
	loggers.Range(func(_, v any) bool {
		v.(*Logger).std.SetOutput(w)
		return true
	})
}

func (l *Logger) logInternal(level, msg string) {
	l.std.Println(level + " [" + l.name + ">] " + msg)
}

// Infof logs an informational message with fmt.Sprintf semantics.
func (l *Logger) Infof(format string, args ...any) {
	l.logInternal(LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf logs a warning message.
func (l *Logger) Warnf(format string, args ...any) {
	l.logInternal(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf logs an error message.
func (l *Logger) Errorf(format string, args ...any) {
	l.logInternal(LevelError, fmt.Sprintf(format, args...))
}

// Debugf logs a debug message when debug is enabled for this component.
func (l *Logger) Debugf(format string, args ...any) {
	if !DebugEnabledFor(l.name) {
		return
	}
	l.logInternal(LevelDebug, fmt.Sprintf(format, args...))
}
