package vectorstore

import (
	"fmt"
	"path/filepath"

	"github.com/fyrsmithlabs/litweaver/internal/config"
	"github.com/fyrsmithlabs/litweaver/internal/logging"
)

// ChromemDirName is the subdirectory of a project's vector_store directory
// that holds the chromem database.
const ChromemDirName = "chromem"

// NewStore creates a Store for the project whose vector store directory is
// path, selected by cfg.Provider:
//   - "chromem" (default): embedded database at path/chromem
//   - "qdrant": external server at cfg.QdrantHost:cfg.QdrantPort; path is unused
//
// dimension is the embedder's output size; new Qdrant collections are
// created with it and both stores reject vectors of another size.
func NewStore(cfg config.VectorStoreConfig, path string, embedder Embedder, dimension int, logger *logging.Logger) (Store, error) {
	switch cfg.Provider {
	case "chromem", "":
		if path == "" {
			return nil, fmt.Errorf("%w: vector store path required", ErrInvalidConfig)
		}
		return NewChromemStore(ChromemConfig{
			Path:       filepath.Join(path, ChromemDirName),
			Compress:   cfg.Compress,
			VectorSize: dimension,
		}, embedder, logger)

	case "qdrant":
		if dimension <= 0 {
			return nil, fmt.Errorf("%w: embedding dimension required for qdrant", ErrInvalidConfig)
		}
		return NewQdrantStore(QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey.Value(),
			UseTLS:     cfg.QdrantUseTLS,
			VectorSize: uint64(dimension),
		}, embedder, logger)

	default:
		return nil, fmt.Errorf("%w: unsupported vectorstore provider: %s (supported: chromem, qdrant)", ErrInvalidConfig, cfg.Provider)
	}
}
