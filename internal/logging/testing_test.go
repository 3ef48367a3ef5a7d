package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Info(ctx, "processed", zap.String("file", "a.pdf"), zap.Int("chunks", 3))

	tl.AssertLogged(t, zapcore.InfoLevel, "process")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "processed")
	tl.AssertField(t, "processed", "file", "a.pdf")
	tl.AssertField(t, "processed", "chunks", int64(3))
	tl.AssertNoSecrets(t)

	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestTestLogger_AssertNoSecrets_Detects(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "unsafe", zap.String("password", "hunter2"))

	rec := &recordingTB{TB: t}
	tl.AssertNoSecrets(rec)
	assert.True(t, rec.failed)
}

// recordingTB captures Errorf instead of failing the enclosing test.
type recordingTB struct {
	testing.TB
	failed bool
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(string, ...interface{}) { r.failed = true }
