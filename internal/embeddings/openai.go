package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/litweaver/internal/config"
	"github.com/fyrsmithlabs/litweaver/internal/logging"
)

// OpenAIConfig configures an OpenAI-compatible embedding endpoint.
type OpenAIConfig struct {
	// BaseURL defaults to the public OpenAI API when empty.
	BaseURL string
	Model   string
	APIKey  config.Secret
	// Dimension is reported by Dimension(). For text-embedding-3 models it is
	// also sent as the requested output size.
	Dimension         int
	RequestsPerSecond float64
	Timeout           time.Duration
}

// OpenAIProvider generates embeddings through the OpenAI embeddings API or
// any server that speaks it.
type OpenAIProvider struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
	sendDims  bool
	limiter   *rate.Limiter
	metrics   *Metrics
}

// NewOpenAIProvider creates an OpenAI-compatible embedding provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if cfg.BaseURL == "" && !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("%w: api key required for the hosted OpenAI API", ErrInvalidConfig)
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("%w: requests per second cannot be negative", ErrInvalidConfig)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey.Value())
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	dim := cfg.Dimension
	if dim <= 0 {
		dim = detectDimensionFromModel(cfg.Model)
	}
	_, hosted := openAIModelDimensions[cfg.Model]

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     openai.EmbeddingModel(cfg.Model),
		dimension: dim,
		sendDims:  hosted && cfg.Model != "text-embedding-ada-002" && cfg.Dimension > 0,
		limiter:   newLimiter(cfg.RequestsPerSecond),
		metrics:   NewMetrics(logging.NewNop()),
	}, nil
}

// EmbedDocuments generates embeddings for multiple texts in one request.
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		p.metrics.RecordGeneration(ctx, string(p.model), "embed_documents", time.Since(start), len(texts), genErr)
	}()

	if len(texts) == 0 {
		genErr = fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	vectors, err := p.embed(ctx, texts)
	if err != nil {
		genErr = err
		return nil, genErr
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		p.metrics.RecordGeneration(ctx, string(p.model), "embed_query", time.Since(start), 1, genErr)
	}()

	if text == "" {
		genErr = fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	vectors, err := p.embed(ctx, []string{text})
	if err != nil {
		genErr = err
		return nil, genErr
	}
	return vectors[0], nil
}

func (p *OpenAIProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := waitLimiter(ctx, p.limiter); err != nil {
		return nil, err
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          p.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if p.sendDims {
		req.Dimensions = p.dimension
	}

	resp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, parseAPIError(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(resp.Data), len(texts))
	}

	// Servers may return data out of order; Index is authoritative.
	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Dimension returns the embedding dimension.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op; the provider only holds an HTTP client.
func (p *OpenAIProvider) Close() error {
	return nil
}

// parseAPIError extracts a readable message from an API failure and wraps
// ErrEmbeddingFailed.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("%w: status %d: %v", ErrEmbeddingFailed, reqErr.HTTPStatusCode, reqErr.Err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, apiErr.HTTPStatusCode, apiErr.Message)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
}

// extractDetail reads the "detail" field some compatible servers use for errors.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Detail
	}
	return ""
}
