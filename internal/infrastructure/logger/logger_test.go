package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		log, err := New(&Config{Level: "debug", Format: "json", Output: "stdout", TimeFormat: "2006-01-02"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("console format", func(t *testing.T) {
		log, err := New(DefaultConfig())
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel), "default level is info")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"garbage", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLevel(tt.input), tt.input)
	}
}

func TestContextPropagation(t *testing.T) {
	t.Run("logger round-trips through context", func(t *testing.T) {
		log := zap.NewNop()
		ctx := WithContext(context.Background(), log)
		assert.Same(t, log, FromContext(ctx))
	})

	t.Run("missing logger falls back to no-op", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("request ID enriches context", func(t *testing.T) {
		ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-42")
		assert.Equal(t, "req-42", GetRequestID(ctx))
	})

	t.Run("operator enriches context", func(t *testing.T) {
		ctx, _ := WithOperator(context.Background(), zap.NewNop(), "clerk-7")
		assert.Equal(t, "clerk-7", GetOperator(ctx))
	})

	t.Run("L never returns nil", func(t *testing.T) {
		assert.NotNil(t, L(context.Background()))
	})
}

func TestResolve(t *testing.T) {
	t.Run("attached logger wins over fallback", func(t *testing.T) {
		attached := zap.NewNop()
		ctx := WithContext(context.Background(), attached)
		assert.Same(t, attached, Resolve(ctx, zap.NewExample()))
	})

	t.Run("fallback enriched with context metadata", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		fallback := zap.New(core)

		ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
		ctx = context.WithValue(ctx, OperatorKey, "clerk-7")

		Resolve(ctx, fallback).Info("resolved")

		entries := logs.All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-42", fields["request_id"])
		assert.Equal(t, "clerk-7", fields["operator"])
	})

	t.Run("bare context returns the fallback untouched", func(t *testing.T) {
		fallback := zap.NewNop()
		assert.Same(t, fallback, Resolve(context.Background(), fallback))
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("info"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
