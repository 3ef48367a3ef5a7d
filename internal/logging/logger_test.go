package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.NotNil(t, logger.zap)
	assert.Equal(t, cfg, logger.config)
	assert.Nil(t, logger.closer)
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "yaml"

	_, err := NewLogger(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "litweaver.log")

	cfg := NewDefaultConfig()
	cfg.Output.Stderr = false
	cfg.Output.File = path

	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	ctx := WithProject(context.Background(), "review")
	logger.Info(ctx, "file processed", zap.String("api_key", "sk-abcdefghijklmnopqrstu"))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `"msg":"file processed"`)
	assert.Contains(t, out, `"project":"review"`)
	assert.Contains(t, out, `"service":"litweaver"`)
	assert.NotContains(t, out, "sk-abcdefghijklmnopqrstu")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestNewLogger_StderrSink(t *testing.T) {
	buf := &syncBuffer{}
	orig := stderrSink
	stderrSink = buf
	t.Cleanup(func() { stderrSink = orig })

	cfg := NewDefaultConfig()
	cfg.Format = "json"
	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	logger.Debug(context.Background(), "hidden")
	logger.Warn(context.Background(), "visible")
	require.NoError(t, logger.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestLogger_ContextAwareMethods(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	ctx := context.Background()

	tests := []struct {
		name    string
		logFunc func()
		level   zapcore.Level
	}{
		{"trace", func() { logger.Trace(ctx, "msg", zap.String("key", "val")) }, TraceLevel},
		{"debug", func() { logger.Debug(ctx, "msg", zap.String("key", "val")) }, zapcore.DebugLevel},
		{"info", func() { logger.Info(ctx, "msg", zap.String("key", "val")) }, zapcore.InfoLevel},
		{"warn", func() { logger.Warn(ctx, "msg", zap.String("key", "val")) }, zapcore.WarnLevel},
		{"error", func() { logger.Error(ctx, "msg", zap.String("key", "val")) }, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			observed.TakeAll()
			tt.logFunc()

			logs := observed.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			assert.Len(t, logs[0].Context, 1)
		})
	}
}

func TestLogger_TraceSkippedWhenDisabled(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	logger.Trace(context.Background(), "chunk detail")

	assert.Zero(t, observed.Len())
	assert.False(t, logger.Enabled(TraceLevel))
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
}

func TestLogger_WithAndNamed(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	logger.Named("ingest").With(zap.String("file", "a.pdf")).Info(context.Background(), "child log")

	logs := observed.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "ingest", logs[0].LoggerName)
	assert.Equal(t, "a.pdf", logs[0].ContextMap()["file"])
}

func TestLogger_CloseWithoutFile(t *testing.T) {
	assert.NoError(t, NewNop().Close())
}

// syncBuffer is an in-memory zapcore.WriteSyncer.
type syncBuffer struct {
	data []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string { return string(b.data) }
