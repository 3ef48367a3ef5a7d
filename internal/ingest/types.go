package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/fyrsmithlabs/litweaver/internal/chunking"
	"github.com/fyrsmithlabs/litweaver/internal/extraction"
	"github.com/fyrsmithlabs/litweaver/internal/vectorstore"
)

// DefaultBatchSize is the number of chunks sent to the store per call.
const DefaultBatchSize = 64

// ErrNoFilesProcessed is returned, together with the result, when a run ends
// without processing any file: the papers directory has no PDFs, every PDF
// was unchanged, or every PDF failed.
var ErrNoFilesProcessed = errors.New("no files were processed")

// Config configures a Processor.
type Config struct {
	// Collection is the vector store collection chunks are written to.
	Collection string

	// Project is recorded in each chunk's metadata.
	Project string

	// BatchSize is the number of chunks per AddDocuments call.
	// Default: 64
	BatchSize int

	// Force reprocesses files whose hash is unchanged.
	Force bool
}

// StoreOpener opens the vector store for the project whose vector store
// directory is vectorStorePath. It is only called when there is something to
// process, so expensive setup such as loading an embedding model belongs here.
type StoreOpener func(ctx context.Context, vectorStorePath string) (vectorstore.Store, error)

// Fingerprinter is implemented by stores that can identify the embedding model
// behind them. When the fingerprint differs from the one recorded by the
// previous run, every file is reprocessed.
type Fingerprinter interface {
	Fingerprint() string
}

// Splitter splits an extracted document into chunks.
type Splitter interface {
	Split(doc *extraction.Document) ([]chunking.Chunk, error)
}

// Result summarizes a ProcessDirectory run.
type Result struct {
	// FilesProcessed is the number of PDFs whose chunks were written.
	FilesProcessed int

	// FilesSkipped is the number of PDFs unchanged since the last run.
	FilesSkipped int

	// FilesFailed is the number of PDFs that could not be extracted or
	// produced no text.
	FilesFailed int

	// FilesRemoved is the number of previously ingested PDFs that no longer
	// exist and whose chunks were deleted.
	FilesRemoved int

	// Chunks is the number of chunks added or updated.
	Chunks int

	// Failed lists the papers-relative paths of the failed files.
	Failed []string

	// Duration is the wall time of the run.
	Duration time.Duration
}
