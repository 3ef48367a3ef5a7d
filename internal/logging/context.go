package logging

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if cmd := CommandFromContext(ctx); cmd != "" {
		fields = append(fields, zap.String("command", cmd))
	}
	if project := ProjectFromContext(ctx); project != "" {
		fields = append(fields, zap.String("project", project))
	}
	if runID := RunIDFromContext(ctx); runID != "" {
		fields = append(fields, zap.String("run.id", runID))
	}

	return fields
}

type commandCtxKey struct{}
type projectCtxKey struct{}
type runCtxKey struct{}
type loggerCtxKey struct{}

const (
	maxProjectFieldLen = 128
	maxIDLen           = 64
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (must be alphanumeric, hyphen, underscore)", name)
	}
	return nil
}

// WithCommand records the CLI command being run.
// Panics if cmd is empty or contains invalid characters.
func WithCommand(ctx context.Context, cmd string) context.Context {
	if err := validateID(cmd, "command"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, commandCtxKey{}, cmd)
}

// CommandFromContext extracts the command name from context.
func CommandFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(commandCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithRunID records an identifier shared by every log line of one invocation.
// Panics if runID is empty or contains invalid characters.
func WithRunID(ctx context.Context, runID string) context.Context {
	if err := validateID(runID, "runID"); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, runCtxKey{}, runID)
}

// RunIDFromContext extracts the run ID from context.
func RunIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(runCtxKey{}).(string); ok {
		return s
	}
	return ""
}

// WithProject records the project name. The name is user input, so it is
// cleaned rather than rejected: invalid UTF-8 and control characters are
// replaced and the value is truncated.
func WithProject(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, projectCtxKey{}, cleanProjectField(name))
}

// ProjectFromContext extracts the project name from context.
func ProjectFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(projectCtxKey{}).(string); ok {
		return s
	}
	return ""
}

func cleanProjectField(name string) string {
	name = strings.ToValidUTF8(name, "?")
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '?'
		}
		return r
	}, name)
	if len(name) > maxProjectFieldLen {
		name = strings.ToValidUTF8(name[:maxProjectFieldLen], "")
	}
	return name
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
