package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that discards every record. Enabled reports false so
// callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger used by every engine package. The engine is silent by default.
// Passing nil restores the silent default. Safe for concurrent use.
//
// Log levels used by the engine:
//   - slog.LevelDebug: surface capabilities, handle counts, stage timings
//   - slog.LevelInfo: selected device, presentation generations built
//   - slog.LevelWarn: present mode fallbacks, missing validation layers
//   - slog.LevelError: validation layer reports
//
// Parameters:
//   - l: the logger to install, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current engine logger. Never nil.
//
// Returns:
//   - *slog.Logger: the active logger
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// ComponentLogger returns the current engine logger tagged with a component attribute.
//
// Parameters:
//   - component: the component name, e.g. "swapchain"
//
// Returns:
//   - *slog.Logger: the tagged logger
func ComponentLogger(component string) *slog.Logger {
	return Logger().With("component", component)
}
