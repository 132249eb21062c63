// Package glog provides the structured logger handed explicitly to the
// components that log (the cache, the build driver, the flash engine and the
// device watcher). There is no package-level logger: callers build one
// with New and pass it down, the same way the teacher's cmd.Cmd takes an
// explicit io.Writer instead of writing to a global.
package glog

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with a fixed "component" attribute.
type Logger struct {
	inner *slog.Logger
}

// New creates a Logger that tags every record with component and writes
// to w in text form. A nil w defaults to os.Stderr.
func New(component string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &Logger{inner: slog.New(h).With("component", component)}
}

// Noop returns a Logger that discards everything, for code paths that were
// not handed one (e.g. unit tests exercising a component directly).
func Noop() *Logger {
	return &Logger{inner: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// With returns a derived Logger with additional fixed key/value pairs.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

// InfoCtx logs at info level honoring a context carrying slog attributes.
func (l *Logger) InfoCtx(ctx context.Context, msg string, args ...any) {
	l.inner.InfoContext(ctx, msg, args...)
}
