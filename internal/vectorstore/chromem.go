package vectorstore

import (
	"context"
	"fmt"
	"os"
	"strconv"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/litweaver/internal/logging"
)

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("litweaver.vectorstore.chromem")

// ChromemConfig holds configuration for chromem-go embedded vector database.
type ChromemConfig struct {
	// Path is the directory for persistent storage, usually
	// <project>/vector_store/chromem.
	Path string

	// Compress enables gzip compression for stored documents.
	Compress bool

	// VectorSize is the expected embedding dimension. Zero skips the check.
	VectorSize int
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: path required", ErrInvalidConfig)
	}
	if c.VectorSize < 0 {
		return fmt.Errorf("%w: vector size cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements the Store interface using chromem-go.
//
// chromem-go keeps collections in memory and writes every document to its own
// file under Path, so no explicit flush is needed.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder
	config   ChromemConfig
	logger   *logging.Logger
}

// NewChromemStore opens (or creates) the persistent database at config.Path.
func NewChromemStore(config ChromemConfig, embedder Embedder, logger *logging.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", config.Path, err)
	}

	db, err := chromem.NewPersistentDB(config.Path, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	logger.Debug(context.Background(), "chromem store opened",
		zap.String("path", config.Path),
		zap.Bool("compress", config.Compress),
		zap.Int("vector_size", config.VectorSize),
		zap.Int("collections", len(db.ListCollections())),
	)

	return &ChromemStore{
		db:       db,
		embedder: embedder,
		config:   config,
		logger:   logger,
	}, nil
}

// embeddingFunc lets chromem embed on its own if it ever needs to. It must be
// passed on every lookup: chromem falls back to its OpenAI default when nil.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// EnsureCollection creates the collection if it does not exist yet.
func (s *ChromemStore) EnsureCollection(ctx context.Context, collection string) error {
	_, span := chromemTracer.Start(ctx, "ChromemStore.EnsureCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))

	if _, err := s.getOrCreateCollection(collection); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "success")
	return nil
}

func (s *ChromemStore) getOrCreateCollection(name string) (*chromem.Collection, error) {
	if err := ValidateCollectionName(name); err != nil {
		return nil, err
	}
	col, err := s.db.GetOrCreateCollection(name, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", name, err)
	}
	return col, nil
}

// AddDocuments embeds docs in one batch and writes them to collection.
func (s *ChromemStore) AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.AddDocuments")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("document_count", len(docs)),
	)

	if len(docs) == 0 {
		return nil, ErrEmptyDocuments
	}

	ids := make([]string, len(docs))
	for i, doc := range docs {
		if doc.ID == "" {
			return nil, fmt.Errorf("document at index %d has no ID", i)
		}
		ids[i] = doc.ID
	}

	col, err := s.getOrCreateCollection(collection)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	vectors, err := embedDocuments(ctx, s.embedder, docs, s.config.VectorSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  metadataToStrings(doc.Metadata),
			Embedding: vectors[i],
		}
	}

	// Embeddings are precomputed, so one worker is enough.
	if err := col.AddDocuments(ctx, chromemDocs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("adding documents: %w", err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Trace(ctx, "added documents to chromem",
		zap.String("collection", collection),
		zap.Int("count", len(docs)),
	)
	return ids, nil
}

// DeleteDocuments deletes documents by their IDs.
func (s *ChromemStore) DeleteDocuments(ctx context.Context, collection string, ids []string) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.DeleteDocuments")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("id_count", len(ids)),
	)

	if len(ids) == 0 {
		return nil
	}
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}

	col := s.db.GetCollection(collection, s.embeddingFunc())
	if col == nil {
		span.SetStatus(codes.Error, "collection not found")
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}

	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting %d documents: %w", len(ids), err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Trace(ctx, "deleted documents from chromem",
		zap.String("collection", collection),
		zap.Int("count", len(ids)),
	)
	return nil
}

// Count returns the number of documents in collection.
func (s *ChromemStore) Count(ctx context.Context, collection string) (int, error) {
	_, span := chromemTracer.Start(ctx, "ChromemStore.Count")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))

	if err := ValidateCollectionName(collection); err != nil {
		return 0, err
	}
	col := s.db.GetCollection(collection, s.embeddingFunc())
	if col == nil {
		return 0, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	n := col.Count()
	span.SetAttributes(attribute.Int("point_count", n))
	return n, nil
}

// DeleteCollection drops collection together with its persisted files.
func (s *ChromemStore) DeleteCollection(ctx context.Context, collection string) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.DeleteCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", collection))

	if err := ValidateCollectionName(collection); err != nil {
		return err
	}
	if err := s.db.DeleteCollection(collection); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting collection %s: %w", collection, err)
	}

	span.SetStatus(codes.Ok, "success")
	s.logger.Info(ctx, "deleted chromem collection", zap.String("collection", collection))
	return nil
}

// Close is a no-op: chromem-go persists each write immediately.
func (s *ChromemStore) Close() error {
	return nil
}

// metadataToStrings converts metadata for chromem, which only stores strings.
func metadataToStrings(metadata map[string]interface{}) map[string]string {
	if metadata == nil {
		return nil
	}

	result := make(map[string]string, len(metadata))
	for k, v := range metadata {
		switch val := v.(type) {
		case string:
			result[k] = val
		case int:
			result[k] = strconv.Itoa(val)
		case int64:
			result[k] = strconv.FormatInt(val, 10)
		case float64:
			result[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			result[k] = strconv.FormatBool(val)
		default:
			result[k] = fmt.Sprintf("%v", val)
		}
	}
	return result
}

var _ Store = (*ChromemStore)(nil)
