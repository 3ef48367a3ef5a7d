package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/litweaver/internal/extraction"
	"github.com/fyrsmithlabs/litweaver/internal/logging"
	"github.com/fyrsmithlabs/litweaver/internal/manifest"
	"github.com/fyrsmithlabs/litweaver/internal/vectorstore"
)

var tracer = otel.Tracer("litweaver.ingest")

// metaFingerprint is the manifest meta key holding the embedder fingerprint.
const metaFingerprint = "embedder_fingerprint"

// chunkNamespace scopes chunk IDs.
var chunkNamespace = uuid.MustParse("3b8e2f6c-9a41-4d7e-8c25-71f0a9d4e6b2")

// ChunkID returns the deterministic document ID of chunk index of the file
// at relPath with content hash fileHash.
func ChunkID(relPath, fileHash string, index int) string {
	name := relPath + "\x00" + fileHash + "\x00" + strconv.Itoa(index)
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}

// Processor ingests papers directories.
type Processor struct {
	config    Config
	openStore StoreOpener
	extractor extraction.Extractor
	splitter  Splitter
	logger    *logging.Logger
}

// NewProcessor creates a Processor. A nil logger discards logs.
func NewProcessor(cfg Config, openStore StoreOpener, extractor extraction.Extractor, splitter Splitter, logger *logging.Logger) (*Processor, error) {
	if err := vectorstore.ValidateCollectionName(cfg.Collection); err != nil {
		return nil, err
	}
	if openStore == nil {
		return nil, errors.New("store opener is required")
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if splitter == nil {
		return nil, errors.New("splitter is required")
	}
	if cfg.BatchSize < 0 {
		return nil, fmt.Errorf("invalid batch size: %d", cfg.BatchSize)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Processor{
		config:    cfg,
		openStore: openStore,
		extractor: extractor,
		splitter:  splitter,
		logger:    logger,
	}, nil
}

// run holds the state of one ProcessDirectory call.
type run struct {
	papersDir string
	manifest  *manifest.Manifest
	store     vectorstore.Store
	force     bool
	result    *Result
}

// ProcessDirectory ingests the PDFs in papersDir into the project's vector
// store at vectorStorePath.
//
// Files that cannot be extracted or contain no text are counted in
// Result.FilesFailed and do not stop the run; store and embedding errors do.
// When no file ends up processed the result is returned together with
// ErrNoFilesProcessed. Chunks of papers removed since the last run are
// deleted even when papersDir no longer holds any PDF.
func (p *Processor) ProcessDirectory(ctx context.Context, papersDir, vectorStorePath string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Processor.ProcessDirectory")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", p.config.Collection),
		attribute.Bool("force", p.config.Force),
	)

	start := time.Now()
	result := &Result{}
	defer func() { result.Duration = time.Since(start) }()

	files, invalid, err := discover(papersDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for _, pattern := range invalid {
		p.logger.Warn(ctx, "skipping invalid ignore pattern", zap.String("pattern", pattern))
	}
	span.SetAttributes(attribute.Int("file_count", len(files)))

	manifestPath := filepath.Join(vectorStorePath, manifest.FileName)
	if len(files) == 0 && !fileExists(manifestPath) {
		p.logger.Info(ctx, "no PDF files found", zap.String("papers_dir", papersDir))
		return result, ErrNoFilesProcessed
	}

	m, err := manifest.Open(manifestPath, 0)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer m.Close()

	// Without PDFs the store is only needed to drop chunks of papers that
	// were ingested before and have since been deleted.
	if len(files) == 0 {
		entries, err := m.List()
		if err != nil {
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		if len(entries) == 0 {
			p.logger.Info(ctx, "no PDF files found", zap.String("papers_dir", papersDir))
			return result, ErrNoFilesProcessed
		}
	}

	store, err := p.openStore(ctx, vectorStorePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			p.logger.Warn(ctx, "closing vector store", zap.Error(err))
		}
	}()

	r := &run{
		papersDir: papersDir,
		manifest:  m,
		store:     store,
		force:     p.config.Force,
		result:    result,
	}

	// A new embedding model may produce vectors of another size, so the
	// collection is rebuilt from scratch rather than mixed.
	fingerprint := ""
	if fp, ok := store.(Fingerprinter); ok {
		fingerprint = fp.Fingerprint()
		previous, err := m.Meta(metaFingerprint)
		if err != nil {
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		if previous != "" && previous != fingerprint {
			p.logger.Warn(ctx, "embedding model changed, rebuilding collection",
				zap.String("collection", p.config.Collection),
				zap.String("previous", previous),
				zap.String("current", fingerprint),
			)
			if err := store.DeleteCollection(ctx, p.config.Collection); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("resetting collection %s: %w", p.config.Collection, err)
			}
			r.force = true
		}
	}

	if err := store.EnsureCollection(ctx, p.config.Collection); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("preparing collection %s: %w", p.config.Collection, err)
	}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := p.processFile(ctx, r, rel); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}
	}

	if err := p.prune(ctx, r, files); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	if fingerprint != "" {
		if err := m.SetMeta(metaFingerprint, fingerprint); err != nil {
			return result, fmt.Errorf("updating manifest: %w", err)
		}
	}

	span.SetAttributes(
		attribute.Int("files_processed", result.FilesProcessed),
		attribute.Int("files_skipped", result.FilesSkipped),
		attribute.Int("files_failed", result.FilesFailed),
		attribute.Int("chunks", result.Chunks),
	)
	p.logger.Info(ctx, "processing finished",
		zap.Int("processed", result.FilesProcessed),
		zap.Int("skipped", result.FilesSkipped),
		zap.Int("failed", result.FilesFailed),
		zap.Int("removed", result.FilesRemoved),
		zap.Int("chunks", result.Chunks),
		zap.Duration("duration", time.Since(start)),
	)

	if result.FilesProcessed == 0 {
		return result, ErrNoFilesProcessed
	}
	span.SetStatus(codes.Ok, "success")
	return result, nil
}

// processFile ingests one file. Only errors that must abort the run are
// returned; per-file failures are recorded in the result.
func (p *Processor) processFile(ctx context.Context, r *run, rel string) error {
	path := filepath.Join(r.papersDir, filepath.FromSlash(rel))
	log := p.logger.With(zap.String("file", rel))

	hash, err := hashFile(path)
	if err != nil {
		log.Warn(ctx, "failed to read PDF", zap.Error(err))
		r.fail(rel)
		return nil
	}

	previous, err := r.manifest.Get(rel)
	if err != nil {
		return err
	}
	if previous != nil && previous.Hash == hash && !r.force {
		log.Debug(ctx, "unchanged, skipping")
		r.result.FilesSkipped++
		return nil
	}

	doc, err := p.extractor.Extract(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Warn(ctx, "failed to extract text", zap.Error(err))
		r.fail(rel)
		return nil
	}

	chunks, err := p.splitter.Split(doc)
	if err != nil {
		log.Warn(ctx, "failed to split text", zap.Error(err))
		r.fail(rel)
		return nil
	}
	if len(chunks) == 0 {
		log.Warn(ctx, "no text chunks produced", zap.Error(extraction.ErrNoText))
		r.fail(rel)
		return nil
	}

	if previous != nil && len(previous.ChunkIDs) > 0 {
		if err := r.store.DeleteDocuments(ctx, p.config.Collection, previous.ChunkIDs); err != nil &&
			!errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return fmt.Errorf("deleting previous chunks of %s: %w", rel, err)
		}
	}

	docs := make([]vectorstore.Document, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = ChunkID(rel, hash, c.Index)
		docs[i] = vectorstore.Document{
			ID:      ids[i],
			Content: c.Text,
			Metadata: map[string]interface{}{
				"source":      rel,
				"file_hash":   hash,
				"page":        c.Page,
				"chunk_index": c.Index,
				"project":     p.config.Project,
			},
		}
	}

	for start := 0; start < len(docs); start += p.config.BatchSize {
		end := min(start+p.config.BatchSize, len(docs))
		if _, err := r.store.AddDocuments(ctx, p.config.Collection, docs[start:end]); err != nil {
			return fmt.Errorf("storing chunks of %s: %w", rel, err)
		}
	}

	if err := r.manifest.Put(&manifest.Entry{
		Path:        rel,
		Hash:        hash,
		ChunkIDs:    ids,
		Pages:       len(doc.Pages),
		ProcessedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("updating manifest for %s: %w", rel, err)
	}

	r.result.FilesProcessed++
	r.result.Chunks += len(chunks)
	log.Info(ctx, "processed PDF",
		zap.Int("pages", len(doc.Pages)),
		zap.Int("chunks", len(chunks)),
	)
	return nil
}

// prune deletes the chunks of manifest entries whose file is gone.
func (p *Processor) prune(ctx context.Context, r *run, files []string) error {
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}

	entries, err := r.manifest.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if present[e.Path] {
			continue
		}
		if len(e.ChunkIDs) > 0 {
			if err := r.store.DeleteDocuments(ctx, p.config.Collection, e.ChunkIDs); err != nil &&
				!errors.Is(err, vectorstore.ErrCollectionNotFound) {
				return fmt.Errorf("deleting chunks of removed file %s: %w", e.Path, err)
			}
		}
		if err := r.manifest.Delete(e.Path); err != nil {
			return fmt.Errorf("updating manifest for %s: %w", e.Path, err)
		}
		r.result.FilesRemoved++
		p.logger.Info(ctx, "removed chunks of deleted PDF",
			zap.String("file", e.Path),
			zap.Int("chunks", len(e.ChunkIDs)),
		)
	}
	return nil
}

func (r *run) fail(rel string) {
	r.result.FilesFailed++
	r.result.Failed = append(r.result.Failed, rel)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
