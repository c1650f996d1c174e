// Package logging carries a structured logger through context.Context.
package logging

import (
	"context"

	"go.uber.org/zap"
)

// Logger is the common interface for log implementations used across the
// engine. A *zap.SugaredLogger satisfies it in production; NoneLogger
// satisfies it in tests and default contexts.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Debug(args ...any)
	Debugf(format string, args ...any)
	WithFields(fields ...any) Logger
	Sync() error
}

// ZapLogger adapts *zap.SugaredLogger to the Logger interface.
type ZapLogger struct {
	*zap.SugaredLogger
}

// NewZapLogger builds a production ZapLogger at the given level.
func NewZapLogger(level string) (*ZapLogger, error) {
	cfg := zap.NewProductionConfig()

	lvl, err := zap.ParseAtomicLevel(level)
	if err == nil {
		cfg.Level = lvl
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &ZapLogger{SugaredLogger: l.Sugar()}, nil
}

// WithFields returns a child logger annotated with the given key/value pairs.
func (z *ZapLogger) WithFields(fields ...any) Logger {
	return &ZapLogger{SugaredLogger: z.SugaredLogger.With(fields...)}
}

// NoneLogger discards everything. Used when no logger has been attached to
// a context, so callers never need a nil check.
type NoneLogger struct{}

func (NoneLogger) Info(args ...any)                  {}
func (NoneLogger) Infof(format string, args ...any)  {}
func (NoneLogger) Error(args ...any)                 {}
func (NoneLogger) Errorf(format string, args ...any) {}
func (NoneLogger) Warn(args ...any)                  {}
func (NoneLogger) Warnf(format string, args ...any)  {}
func (NoneLogger) Debug(args ...any)                 {}
func (NoneLogger) Debugf(format string, args ...any) {}
func (NoneLogger) WithFields(fields ...any) Logger   { return NoneLogger{} }
func (NoneLogger) Sync() error                       { return nil }

type contextKey string

const loggerKey contextKey = "deploy_engine_logger"

// ContextWithLogger returns a context carrying the given logger.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the Logger previously attached with ContextWithLogger,
// or a NoneLogger if none was attached.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok && logger != nil {
		return logger
	}

	return NoneLogger{}
}
