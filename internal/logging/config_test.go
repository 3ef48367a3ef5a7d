package logging

import (
	"testing"

	"github.com/fyrsmithlabs/litweaver/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, zapcore.InfoLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.True(t, cfg.Output.Stderr)
	assert.Empty(t, cfg.Output.File)
	assert.False(t, cfg.Sampling.Enabled)
	assert.Equal(t, "litweaver", cfg.Fields["service"])
	assert.True(t, cfg.Redaction.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad format", func(c *Config) { c.Format = "xml" }, "format must be"},
		{"no outputs", func(c *Config) { c.Output.Stderr = false }, "at least one output"},
		{"file only", func(c *Config) { c.Output.Stderr = false; c.Output.File = "/tmp/x.log" }, ""},
		{"zero tick", func(c *Config) { c.Sampling.Enabled = true; c.Sampling.Tick = 0 }, "sampling tick"},
		{"negative caller skip", func(c *Config) { c.Caller.Skip = -1 }, "caller skip"},
		{"bad pattern", func(c *Config) { c.Redaction.Patterns = []string{"[unclosed"} }, "invalid redaction pattern"},
		{"empty field key", func(c *Config) { c.Fields = map[string]string{"": "x"} }, "field key cannot be empty"},
		{"empty field value", func(c *Config) { c.Fields = map[string]string{"k": ""} }, "empty value"},
		{"nil fields", func(c *Config) { c.Fields = nil }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg, err := FromAppConfig(config.LoggingConfig{Level: "debug", Format: "json", File: "/var/log/lw.log"})
	require.NoError(t, err)

	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "/var/log/lw.log", cfg.Output.File)
	assert.True(t, cfg.Output.Stderr)
}

func TestFromAppConfig_Trace(t *testing.T) {
	cfg, err := FromAppConfig(config.LoggingConfig{Level: "TRACE"})
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)
}

func TestFromAppConfig_InvalidLevel(t *testing.T) {
	_, err := FromAppConfig(config.LoggingConfig{Level: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
