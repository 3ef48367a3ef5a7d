package config

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty base dir",
			mutate:  func(c *Config) { c.Projects.BaseDir = "" },
			wantErr: "base directory",
		},
		{
			name:    "zero chunk size",
			mutate:  func(c *Config) { c.Chunking.ChunkSize = 0 },
			wantErr: "chunk size",
		},
		{
			name:    "overlap equal to size",
			mutate:  func(c *Config) { c.Chunking.ChunkOverlap = c.Chunking.ChunkSize },
			wantErr: "chunk overlap",
		},
		{
			name:    "tei without base url",
			mutate:  func(c *Config) { c.Embeddings.Provider = "tei" },
			wantErr: "base URL required",
		},
		{
			name:    "unknown vector store",
			mutate:  func(c *Config) { c.VectorStore.Provider = "pinecone" },
			wantErr: "unsupported vectorstore provider",
		},
		{
			name: "qdrant bad port",
			mutate: func(c *Config) {
				c.VectorStore.Provider = "qdrant"
				c.VectorStore.QdrantPort = 70000
			},
			wantErr: "invalid qdrant port",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging format",
		},
		{
			name:   "telemetry enabled with defaults",
			mutate: func(c *Config) { c.Telemetry.Enabled = true },
		},
		{
			name: "telemetry plaintext to remote collector",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = "otel.example.com:4317"
			},
			wantErr: "plaintext export",
		},
		{
			name: "telemetry unknown protocol",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Protocol = "zipkin"
			},
			wantErr: "protocol",
		},
		{
			name: "telemetry sample rate out of range",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.SampleRate = 1.5
			},
			wantErr: "sample_rate",
		},
		{
			name: "disabled telemetry is not validated",
			mutate: func(c *Config) {
				c.Telemetry.Endpoint = "otel.example.com:4317"
				c.Telemetry.Protocol = "zipkin"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
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

func TestSecret_NeverPrinted(t *testing.T) {
	s := Secret("sk-live-123")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "sk-live")
	assert.Equal(t, "sk-live-123", s.Value())

	data, err := json.Marshal(struct{ Key Secret }{s})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-live")

	assert.False(t, Secret("").IsSet())
	assert.Equal(t, "", Secret("").String())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, "1m30s", d.Duration().String())

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestTelemetryConfig_IsLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"localhost:4317", true},
		{"127.0.0.1:4317", true},
		{"127.1.2.3", true},
		{"[::1]:4317", true},
		{"::1", true},
		{"otel.example.com:4317", false},
		{"10.0.0.5:4317", false},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, TelemetryConfig{Endpoint: tt.endpoint}.IsLocalEndpoint())
		})
	}
}
