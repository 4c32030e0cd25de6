// Package logging: slog-backed implementation used outside of tests.
package logging

// file: internal/logging/slog.go

import (
	"context"
	"io"
	"log/slog"
)

// Level is the application's logging verbosity level, independent of any
// particular backend's level type.
type Level int

// Logging levels, ordered from most to least verbose.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// levelVar backs the process-wide dynamic level used by InitLogging/SetLevel.
var levelVar slog.LevelVar

// InitLogging installs a JSON slog-backed default logger writing to w at the
// given level. Intended to be called once from a command's main.
func InitLogging(level Level, w io.Writer) {
	levelVar.Set(level.slogLevel())
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: &levelVar})
	SetDefaultLogger(&slogLogger{logger: slog.New(handler)})
}

// SetLevel adjusts the verbosity of the process-wide logger installed by
// InitLogging. Safe to call concurrently.
func SetLevel(level Level) {
	levelVar.Set(level.slogLevel())
}

// IsDebugEnabled reports whether debug-level messages are currently emitted.
func IsDebugEnabled() bool {
	return levelVar.Level() <= slog.LevelDebug
}

// slogLogger adapts *slog.Logger to the Logger interface.
type slogLogger struct {
	logger *slog.Logger
}

// Debug implements Logger.
func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// Info implements Logger.
func (l *slogLogger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

// Warn implements Logger.
func (l *slogLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

// Error implements Logger.
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// WithContext returns a logger that will extract slog attributes from ctx on
// each call via the handler's context-aware Handle path. Since the standard
// JSON handler doesn't itself inspect context values, this just threads ctx
// through for a custom handler to use; the default handler ignores it.
func (l *slogLogger) WithContext(ctx context.Context) Logger {
	return &contextLogger{logger: l.logger, ctx: ctx}
}

// WithField implements Logger.
func (l *slogLogger) WithField(key string, value any) Logger {
	return &slogLogger{logger: l.logger.With(key, value)}
}

// contextLogger carries a context.Context through to slog's ...Context log calls.
type contextLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

func (l *contextLogger) Debug(msg string, args ...any) { l.logger.DebugContext(l.ctx, msg, args...) }
func (l *contextLogger) Info(msg string, args ...any)  { l.logger.InfoContext(l.ctx, msg, args...) }
func (l *contextLogger) Warn(msg string, args ...any)  { l.logger.WarnContext(l.ctx, msg, args...) }
func (l *contextLogger) Error(msg string, args ...any) { l.logger.ErrorContext(l.ctx, msg, args...) }

func (l *contextLogger) WithContext(ctx context.Context) Logger {
	return &contextLogger{logger: l.logger, ctx: ctx}
}

func (l *contextLogger) WithField(key string, value any) Logger {
	return &contextLogger{logger: l.logger.With(key, value), ctx: l.ctx}
}
