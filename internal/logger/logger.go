// Package logger wraps zap for the StoreIt server: a console logger in
// development and JSON in production, plus helpers to carry a request
// scoped logger through a context.
package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger holds the process-wide zap logger.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger backed by a no-op zap logger until Init is called.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init builds the underlying zap logger at the given level. Development
// mode uses the console encoder.
func (l *Logger) Init(level string, dev bool) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if dev {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	}
	cfg.Level = lvl

	zl, err := cfg.Build()
	if err != nil {
		return err
	}
	l.Log = zl
	return nil
}

type ctxKey struct{}

// ToContext stores a request scoped logger in ctx.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger stored in ctx, or fallback when there is none.
func From(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}
