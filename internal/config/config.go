// Package config provides configuration loading for litweaver.
//
// Configuration is read from an optional YAML file, overridden by LITWEAVER_*
// environment variables, and completed with defaults. See LoadWithFile.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds the complete litweaver configuration.
type Config struct {
	Projects    ProjectsConfig    `koanf:"projects"`
	Chunking    ChunkingConfig    `koanf:"chunking"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Logging     LoggingConfig     `koanf:"logging"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

// ProjectsConfig controls where projects live.
type ProjectsConfig struct {
	BaseDir string `koanf:"base_dir"` // Directory holding all projects (default: projects)
}

// ChunkingConfig controls text splitting.
type ChunkingConfig struct {
	ChunkSize    int `koanf:"chunk_size"`    // Maximum characters per chunk (default: 1000)
	ChunkOverlap int `koanf:"chunk_overlap"` // Characters shared by neighbouring chunks (default: 200)
}

// EmbeddingsConfig selects and configures the embedding provider.
type EmbeddingsConfig struct {
	Provider          string   `koanf:"provider"` // fastembed, tei or openai
	Model             string   `koanf:"model"`
	BaseURL           string   `koanf:"base_url"`
	APIKey            Secret   `koanf:"api_key"`
	CacheDir          string   `koanf:"cache_dir"`
	RequestsPerSecond float64  `koanf:"requests_per_second"` // 0 disables rate limiting
	Timeout           Duration `koanf:"timeout"`
	Dimension         int      `koanf:"dimension"` // Overrides model-based detection when > 0
}

// VectorStoreConfig selects and configures the vector store.
type VectorStoreConfig struct {
	Provider     string `koanf:"provider"` // chromem or qdrant
	Compress     bool   `koanf:"compress"`
	BatchSize    int    `koanf:"batch_size"`
	QdrantHost   string `koanf:"qdrant_host"`
	QdrantPort   int    `koanf:"qdrant_port"`
	QdrantUseTLS bool   `koanf:"qdrant_use_tls"`
	QdrantAPIKey Secret `koanf:"qdrant_api_key"`
}

// LoggingConfig holds the user-facing logging knobs.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// TelemetryConfig controls OpenTelemetry export. Disabled by default since
// most users have no collector running.
type TelemetryConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Endpoint        string   `koanf:"endpoint"` // OTLP collector host:port (default: localhost:4317)
	Protocol        string   `koanf:"protocol"` // grpc or http/protobuf
	TLS             bool     `koanf:"tls"`      // Plaintext is only allowed for local endpoints
	SampleRate      float64  `koanf:"sample_rate"`
	ExportInterval  Duration `koanf:"export_interval"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// IsLocalEndpoint reports whether the collector endpoint is a loopback address.
func (c TelemetryConfig) IsLocalEndpoint() bool {
	host := c.Endpoint

	// Bracketed IPv6: [::1]:4317
	if strings.HasPrefix(host, "[") {
		if idx := strings.Index(host, "]:"); idx != -1 {
			host = host[1:idx]
		} else if strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1]
		}
	} else if strings.Count(host, ":") == 1 {
		host = host[:strings.LastIndex(host, ":")]
	}

	return host == "localhost" ||
		host == "::1" ||
		strings.HasPrefix(host, "127.") ||
		strings.HasPrefix(c.Endpoint, "::1")
}

// Validate validates the configuration.
//
// Returns an error if:
//   - the projects base directory is empty
//   - chunk size is not positive or overlap is not in [0, chunk size)
//   - the embeddings or vector store provider is unknown
//   - a remote embeddings provider has no base URL (tei)
//   - the Qdrant port is out of range (qdrant provider only)
//   - telemetry is enabled with an unusable exporter setup
func (c *Config) Validate() error {
	if c.Projects.BaseDir == "" {
		return errors.New("projects base directory cannot be empty")
	}

	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size: %d (must be positive)", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("invalid chunk overlap: %d (must be in [0, %d))", c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}

	switch c.Embeddings.Provider {
	case "fastembed", "openai":
	case "tei":
		if c.Embeddings.BaseURL == "" {
			return errors.New("embeddings base URL required for tei provider")
		}
	default:
		return fmt.Errorf("unsupported embeddings provider: %q (supported: fastembed, tei, openai)", c.Embeddings.Provider)
	}
	if c.Embeddings.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative: %v", c.Embeddings.RequestsPerSecond)
	}

	switch c.VectorStore.Provider {
	case "chromem":
	case "qdrant":
		if c.VectorStore.QdrantPort < 1 || c.VectorStore.QdrantPort > 65535 {
			return fmt.Errorf("invalid qdrant port: %d (must be 1-65535)", c.VectorStore.QdrantPort)
		}
	default:
		return fmt.Errorf("unsupported vectorstore provider: %q (supported: chromem, qdrant)", c.VectorStore.Provider)
	}
	if c.VectorStore.BatchSize <= 0 {
		return fmt.Errorf("invalid batch size: %d (must be positive)", c.VectorStore.BatchSize)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if err := c.Telemetry.validate(); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}

func (c TelemetryConfig) validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required when telemetry is enabled")
	}
	if c.Protocol != "grpc" && c.Protocol != "http/protobuf" {
		return fmt.Errorf("protocol must be 'grpc' or 'http/protobuf', got %q", c.Protocol)
	}
	if !c.TLS && !c.IsLocalEndpoint() {
		return fmt.Errorf("plaintext export to remote endpoint %s is not allowed; set tls: true", c.Endpoint)
	}
	if c.SampleRate <= 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample_rate must be in (0, 1], got %v", c.SampleRate)
	}
	if c.ExportInterval.Duration() <= 0 {
		return errors.New("export_interval must be positive")
	}
	if c.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	return nil
}
