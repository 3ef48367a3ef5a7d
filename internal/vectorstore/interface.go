package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to Qdrant")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrDimensionMismatch is returned when an existing collection was built
	// with a different vector size than the current embedder produces.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// collectionNamePattern is the name format both backends accept.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName validates a collection name against ^[a-z0-9_]{1,64}$.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	// Returns a slice of embeddings (one per input text) or an error.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Document is a chunk of text to be stored with its metadata.
type Document struct {
	// ID is the unique identifier for the document. litweaver uses UUIDs.
	ID string

	// Content is the text content of the document
	Content string

	// Metadata holds source, file_hash, page, chunk_index and project.
	// Values should be strings, ints or bools.
	Metadata map[string]interface{}
}

// Store is the write side of a vector database.
//
// Implementations:
//   - ChromemStore: Embedded chromem-go (default)
//   - QdrantStore: External Qdrant gRPC client
type Store interface {
	// EnsureCollection creates the collection if it does not exist yet.
	// It is idempotent.
	EnsureCollection(ctx context.Context, collection string) error

	// AddDocuments embeds docs and upserts them into collection, replacing
	// documents with the same ID. Returns the stored IDs in input order.
	AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error)

	// DeleteDocuments removes documents by ID. Unknown IDs are ignored.
	DeleteDocuments(ctx context.Context, collection string, ids []string) error

	// Count returns the number of documents in collection.
	// Returns ErrCollectionNotFound if the collection doesn't exist.
	Count(ctx context.Context, collection string) (int, error)

	// DeleteCollection drops collection and every document in it.
	// Deleting a collection that does not exist is not an error.
	DeleteCollection(ctx context.Context, collection string) error

	// Close releases the store's resources.
	Close() error
}

// embedDocuments embeds the content of docs and checks the result shape.
func embedDocuments(ctx context.Context, embedder Embedder, docs []Document, dimension int) ([][]float32, error) {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("%w: got %d vectors for %d documents", ErrEmbeddingFailed, len(vectors), len(docs))
	}
	if dimension > 0 {
		for i, v := range vectors {
			if len(v) != dimension {
				return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dimension)
			}
		}
	}
	return vectors, nil
}
