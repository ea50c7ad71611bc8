package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  LogConfig
		wantErr bool
	}{
		{name: "json format", config: LogConfig{Level: "info", Format: "json"}},
		{name: "console format", config: LogConfig{Level: "debug", Format: "console"}},
		{name: "empty level defaults to info", config: LogConfig{}},
		{name: "invalid level", config: LogConfig{Level: "loud"}, wantErr: true},
		{name: "invalid format", config: LogConfig{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tt.config.Writer = &bytes.Buffer{}
			logger, err := NewLogger(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewLogger_JSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "info", Writer: &buf})
	require.NoError(t, err)

	logger.Named("gateway").Info("report sent", Int("response_code", 200))
	logger.Debug("dropped")
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "report sent", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "gateway", entry["component"])
	assert.EqualValues(t, 200, entry["response_code"])
	assert.Contains(t, entry, "ts")
}

func TestLogger_WithContext(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromZap(zap.New(core))

	ctx := ContextWithOperationID(context.Background(), "op-1")
	ctx = ContextWithTraceID(ctx, "trace-1")
	logger.WithContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "op-1", fields["operation_id"])
	assert.Equal(t, "trace-1", fields["trace_id"])
}

func TestLogger_WithContext_Empty(t *testing.T) {
	t.Parallel()

	logger := NopLogger()
	assert.Same(t, logger, logger.WithContext(context.Background()))
}

func TestLogger_SetLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "info", Writer: &buf})
	require.NoError(t, err)

	child := logger.With(String("component", "test"))
	require.NoError(t, logger.SetLevel("error"))

	zl := child.(*zapLogger)
	assert.False(t, zl.logger.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, zl.logger.Core().Enabled(zapcore.ErrorLevel))

	assert.Error(t, logger.SetLevel("nope"))
}

func TestContextAccessors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, OperationIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(ctx))

	ctx = ContextWithOperationID(ctx, "abc")
	ctx = ContextWithTraceID(ctx, "def")
	assert.Equal(t, "abc", OperationIDFromContext(ctx))
	assert.Equal(t, "def", TraceIDFromContext(ctx))
}
