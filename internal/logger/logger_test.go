package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	l := New()
	if err := l.Init("debug", true); err != nil {
		t.Fatalf("Init(debug) returned error: %v", err)
	}
	if !l.Log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}

	if err := l.Init("warn", false); err != nil {
		t.Fatalf("Init(warn) returned error: %v", err)
	}
	if l.Log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info level to be disabled at warn")
	}

	if err := l.Init("loud", false); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	scoped := zap.New(core)

	ctx := ToContext(context.Background(), scoped)
	From(ctx, zap.NewNop()).Info("scoped")
	if logs.Len() != 1 {
		t.Fatalf("expected the scoped logger to be used, got %d entries", logs.Len())
	}

	fallbackCore, fallbackLogs := observer.New(zapcore.InfoLevel)
	From(context.Background(), zap.New(fallbackCore)).Info("fallback")
	if fallbackLogs.Len() != 1 {
		t.Errorf("expected fallback logger to be used")
	}

	// nil fallback must not panic
	From(context.Background(), nil).Info("nop")
}
