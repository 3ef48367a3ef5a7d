package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_Trace(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	fields := fieldMap(ContextFields(ctx))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
}

func TestContextFields_CommandProjectRun(t *testing.T) {
	ctx := WithCommand(context.Background(), "process")
	ctx = WithProject(ctx, "lit_review")
	ctx = WithRunID(ctx, "run-123")

	fields := fieldMap(ContextFields(ctx))
	assert.Equal(t, "process", fields["command"])
	assert.Equal(t, "lit_review", fields["project"])
	assert.Equal(t, "run-123", fields["run.id"])
}

func TestWithCommand_InvalidPanics(t *testing.T) {
	assert.Panics(t, func() { WithCommand(context.Background(), "") })
	assert.Panics(t, func() { WithCommand(context.Background(), "rm -rf") })
	assert.Panics(t, func() { WithRunID(context.Background(), strings.Repeat("a", maxIDLen+1)) })
}

func TestWithProject_Cleans(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "my project", "my project"},
		{"newline", "evil\nline", "evil?line"},
		{"invalid utf8", "bad\xffname", "bad?name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithProject(context.Background(), tt.in)
			assert.Equal(t, tt.want, ProjectFromContext(ctx))
		})
	}

	long := WithProject(context.Background(), strings.Repeat("x", 500))
	assert.Len(t, ProjectFromContext(long), maxProjectFieldLen)
}

func TestLogger_AutoInjectContextFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	ctx := WithProject(WithCommand(context.Background(), "init"), "alpha")
	logger.Info(ctx, "project created")

	logs := observed.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "init", logs[0].ContextMap()["command"])
	assert.Equal(t, "alpha", logs[0].ContextMap()["project"])
}

func TestLogger_InContext(t *testing.T) {
	logger := NewNop()
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}

func TestLogger_FromContextMissing(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	logger.Info(context.Background(), "goes nowhere")
}

func fieldMap(fields []zap.Field) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Fields
}
