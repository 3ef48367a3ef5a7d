package embeddings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/litweaver/internal/config"
	"github.com/fyrsmithlabs/litweaver/internal/vectorstore"
)

var (
	// ErrEmptyInput indicates empty or nil input texts
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider is the interface for embedding providers.
type Provider interface {
	vectorstore.Embedder
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "fastembed", "tei" or "openai"
	Provider string
	// Model is the embedding model name
	Model string
	// BaseURL is the remote endpoint (tei, openai)
	BaseURL string
	// APIKey authenticates against openai-compatible endpoints
	APIKey config.Secret
	// CacheDir is the model cache directory (only used for FastEmbed)
	CacheDir string
	// ShowProgress enables progress bars for downloads
	ShowProgress bool
	// RequestsPerSecond caps remote calls; 0 means unlimited
	RequestsPerSecond float64
	// Timeout bounds a single remote request
	Timeout time.Duration
	// Dimension overrides model-based detection when > 0
	Dimension int
}

// ProviderConfigFrom converts the embeddings section of the application
// config. A leading "~/" in the cache directory is expanded.
func ProviderConfigFrom(c config.EmbeddingsConfig) ProviderConfig {
	return ProviderConfig{
		Provider:          c.Provider,
		Model:             c.Model,
		BaseURL:           c.BaseURL,
		APIKey:            c.APIKey,
		CacheDir:          expandHome(c.CacheDir),
		RequestsPerSecond: c.RequestsPerSecond,
		Timeout:           c.Timeout.Duration(),
		Dimension:         c.Dimension,
	}
}

// Fingerprint identifies the vector space a provider writes into. Vectors
// produced under different fingerprints are not comparable.
func Fingerprint(cfg ProviderConfig, dimension int) string {
	provider := cfg.Provider
	if provider == "" {
		provider = "fastembed"
	}
	return fmt.Sprintf("%s|%s|%d", provider, cfg.Model, dimension)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// openAIModelDimensions lists the default output size of hosted OpenAI models.
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// detectDimensionFromModel returns the embedding dimension for a model name.
// Falls back to 384 if model is unknown.
func detectDimensionFromModel(model string) int {
	if dim, ok := fastEmbedModelDimension(model); ok {
		return dim
	}
	if dim, ok := openAIModelDimensions[model]; ok {
		return dim
	}
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "base"):
		return 768
	case strings.Contains(lower, "large"):
		return 1024
	case strings.Contains(lower, "small"), strings.Contains(lower, "mini"):
		return 384
	default:
		return 384
	}
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "fastembed", "":
		p, err := NewFastEmbedProvider(FastEmbedConfig{
			Model:        cfg.Model,
			CacheDir:     cfg.CacheDir,
			ShowProgress: cfg.ShowProgress,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "tei":
		svc, err := NewService(Config{
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Timeout:           cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return &teiProvider{Service: svc, dimension: dimensionFor(cfg)}, nil
	case "openai":
		p, err := NewOpenAIProvider(OpenAIConfig{
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			APIKey:            cfg.APIKey,
			Dimension:         cfg.Dimension,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Timeout:           cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

func dimensionFor(cfg ProviderConfig) int {
	if cfg.Dimension > 0 {
		return cfg.Dimension
	}
	return detectDimensionFromModel(cfg.Model)
}

// teiProvider wraps Service to implement Provider interface.
type teiProvider struct {
	*Service
	dimension int
}

// Dimension returns the embedding dimension based on the configured model.
func (t *teiProvider) Dimension() int {
	return t.dimension
}

// Close is a no-op for TEI since it uses HTTP.
func (t *teiProvider) Close() error {
	return nil
}
