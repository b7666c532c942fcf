// Package logger provides component-tagged structured logging for the
// gateway. Every call names the component it originates from ("poller",
// "dispatch", "api", ...) so a single log stream stays greppable.
package logger

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

var base atomic.Pointer[slog.Logger]

func init() {
	base.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}

// Init reconfigures the process logger. debug enables DEBUG-level output.
func Init(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	base.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// SetLogger replaces the underlying slog.Logger (used by tests).
func SetLogger(l *slog.Logger) {
	base.Store(l)
}

func logWith(level slog.Level, component, msg string, fields map[string]interface{}) {
	attrs := make([]any, 0, 2+2*len(fields))
	attrs = append(attrs, "component", component)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	base.Load().Log(context.Background(), level, msg, attrs...)
}

// InfoC logs an info message tagged with a component.
func InfoC(component, msg string) { logWith(slog.LevelInfo, component, msg, nil) }

// InfoCF logs an info message with a component and structured fields.
func InfoCF(component, msg string, fields map[string]interface{}) {
	logWith(slog.LevelInfo, component, msg, fields)
}

// WarnC logs a warning tagged with a component.
func WarnC(component, msg string) { logWith(slog.LevelWarn, component, msg, nil) }

// WarnCF logs a warning with a component and structured fields.
func WarnCF(component, msg string, fields map[string]interface{}) {
	logWith(slog.LevelWarn, component, msg, fields)
}

// ErrorC logs an error tagged with a component.
func ErrorC(component, msg string) { logWith(slog.LevelError, component, msg, nil) }

// ErrorCF logs an error with a component and structured fields.
func ErrorCF(component, msg string, fields map[string]interface{}) {
	logWith(slog.LevelError, component, msg, fields)
}

// DebugC logs a debug message tagged with a component.
func DebugC(component, msg string) { logWith(slog.LevelDebug, component, msg, nil) }

// DebugCF logs a debug message with a component and structured fields.
func DebugCF(component, msg string, fields map[string]interface{}) {
	logWith(slog.LevelDebug, component, msg, fields)
}
