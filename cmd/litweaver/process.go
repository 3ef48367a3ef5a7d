package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/litweaver/internal/chunking"
	"github.com/fyrsmithlabs/litweaver/internal/embeddings"
	"github.com/fyrsmithlabs/litweaver/internal/extraction"
	"github.com/fyrsmithlabs/litweaver/internal/ingest"
	"github.com/fyrsmithlabs/litweaver/internal/logging"
	"github.com/fyrsmithlabs/litweaver/internal/project"
	"github.com/fyrsmithlabs/litweaver/internal/vectorstore"
)

const instrumentationName = "github.com/fyrsmithlabs/litweaver/cmd/litweaver"

func newProcessCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "process PROJECT_NAME",
		Short: "Extract, chunk and embed the project's PDFs",
		Long: `Extract the text of every PDF in the project's papers/ directory, split
it into overlapping chunks and store the embedded chunks in the
project's vector store.

PDFs unchanged since the last run are skipped unless --force is given.
Chunks of PDFs that were deleted from papers/ are removed. Paths matching
a pattern in papers/.litweaverignore are not processed.

Examples:
  # Index new and changed papers
  litweaver process lit-review

  # Rebuild the whole index
  litweaver process lit-review --force`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := logging.WithProject(cmd.Context(), args[0])
			out := cmd.OutOrStdout()

			p, ok := a.lookupProject(ctx, out, args[0])
			if !ok {
				return nil
			}
			a.processProject(ctx, out, p, force)
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "reprocess PDFs even if they are unchanged")
	return cmd
}

// lookupProject finds the named project, reporting failures on out.
func (a *app) lookupProject(ctx context.Context, out io.Writer, name string) (*project.Project, bool) {
	var p *project.Project
	err := guard(func() error {
		var err error
		p, err = a.projects.Get(ctx, name, a.cfg.Projects.BaseDir)
		return err
	})
	switch {
	case err == nil:
		return p, true
	case isNotFound(err):
		a.logger.Warn(ctx, "project not found", zap.Error(err))
		printNotFound(out, name, err)
	default:
		a.logUnexpected(ctx, "project lookup failed", err)
		fmt.Fprintln(out, "An unexpected error occurred during processing. Check logs.")
	}
	return nil, false
}

func isNotFound(err error) bool {
	return errors.Is(err, project.ErrProjectNotFound) ||
		errors.Is(err, project.ErrNotADirectory) ||
		errors.Is(err, os.ErrNotExist)
}

func printNotFound(out io.Writer, name string, err error) {
	fmt.Fprintf(out, "Error: Project directory or papers directory not found for '%s'. %v\n", name, err)
	fmt.Fprintf(out, "Did you run 'litweaver init %s' first?\n", name)
}

// processProject runs one ingestion pass over p and reports it on out.
func (a *app) processProject(ctx context.Context, out io.Writer, p *project.Project, force bool) {
	ctx, span := a.telemetry.Tracer(instrumentationName).Start(ctx, "process")
	defer span.End()
	span.SetAttributes(attribute.String("project", p.Name), attribute.Bool("force", force))

	fmt.Fprintf(out, "Processing PDFs for project '%s'...\n", p.Name)

	var result *ingest.Result
	err := guard(func() error {
		var err error
		result, err = a.runIngest(ctx, p, force)
		return err
	})
	a.recordRun(ctx, result, err)
	if err != nil && !errors.Is(err, ingest.ErrNoFilesProcessed) && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	switch {
	case err == nil:
		a.logger.Info(ctx, "processing complete",
			zap.Int("files_processed", result.FilesProcessed),
			zap.Int("files_skipped", result.FilesSkipped),
			zap.Int("files_failed", result.FilesFailed),
			zap.Int("files_removed", result.FilesRemoved),
			zap.Int("chunks", result.Chunks),
			zap.Duration("duration", result.Duration),
		)
		fmt.Fprintln(out, "\nProcessing complete.")
		fmt.Fprintf(out, "  - Successfully processed %d PDF file(s).\n", result.FilesProcessed)
		fmt.Fprintf(out, "  - Added/Updated %d chunks in the vector store at: %s\n", result.Chunks, p.Paths.VectorStore)
		printDetails(out, result)
	case errors.Is(err, ingest.ErrNoFilesProcessed):
		a.logger.Warn(ctx, "no files were processed")
		fmt.Fprintln(out, "Processing finished, but no files were processed or an issue occurred.")
		printDetails(out, result)
	case isNotFound(err):
		a.logger.Warn(ctx, "papers directory not found", zap.Error(err))
		printNotFound(out, p.Name, err)
	case errors.Is(err, context.Canceled):
		a.logger.Warn(ctx, "processing interrupted")
		fmt.Fprintln(out, "Processing interrupted.")
		printDetails(out, result)
	default:
		a.logUnexpected(ctx, "processing failed", err)
		fmt.Fprintln(out, "An unexpected error occurred during processing. Check logs.")
	}
}

// printDetails reports the counters the summary lines leave out.
func printDetails(out io.Writer, r *ingest.Result) {
	if r == nil {
		return
	}
	if r.FilesSkipped > 0 {
		fmt.Fprintf(out, "  - Skipped %d unchanged PDF file(s). Use --force to reprocess them.\n", r.FilesSkipped)
	}
	if r.FilesRemoved > 0 {
		fmt.Fprintf(out, "  - Removed chunks of %d deleted PDF file(s).\n", r.FilesRemoved)
	}
	if r.FilesFailed > 0 {
		fmt.Fprintf(out, "  - Failed to process %d PDF file(s): %s\n", r.FilesFailed, strings.Join(r.Failed, ", "))
	}
}

// runIngest builds a processor from the configuration and runs it over p.
func (a *app) runIngest(ctx context.Context, p *project.Project, force bool) (*ingest.Result, error) {
	splitter, err := chunking.New(chunking.Config{
		ChunkSize:    a.cfg.Chunking.ChunkSize,
		ChunkOverlap: a.cfg.Chunking.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	proc, err := ingest.NewProcessor(ingest.Config{
		Collection: project.CollectionName(p),
		Project:    p.Name,
		BatchSize:  a.cfg.VectorStore.BatchSize,
		Force:      force,
	}, openStore(a), extraction.NewPDFExtractor(), splitter, a.logger)
	if err != nil {
		return nil, fmt.Errorf("creating processor: %w", err)
	}

	return proc.ProcessDirectory(ctx, p.Paths.Papers, p.Paths.VectorStore)
}

// recordRun counts processed files and chunks.
func (a *app) recordRun(ctx context.Context, r *ingest.Result, err error) {
	meter := a.telemetry.Meter(instrumentationName)
	files, ferr := meter.Int64Counter("litweaver.ingest.files_total",
		metric.WithDescription("PDF files seen by process runs, labeled by outcome"),
		metric.WithUnit("{file}"),
	)
	chunks, cerr := meter.Int64Counter("litweaver.ingest.chunks_total",
		metric.WithDescription("Chunks added or updated in the vector store"),
		metric.WithUnit("{chunk}"),
	)
	if ferr != nil || cerr != nil {
		a.logger.Warn(ctx, "failed to create ingest counters", zap.Error(errors.Join(ferr, cerr)))
		return
	}
	if r == nil {
		return
	}

	for outcome, n := range map[string]int{
		"processed": r.FilesProcessed,
		"skipped":   r.FilesSkipped,
		"failed":    r.FilesFailed,
		"removed":   r.FilesRemoved,
	} {
		if n > 0 {
			files.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
		}
	}
	if r.Chunks > 0 {
		chunks.Add(ctx, int64(r.Chunks), metric.WithAttributes(attribute.Bool("error", err != nil)))
	}
}

// embeddedStore is a vector store that owns its embedding provider.
type embeddedStore struct {
	vectorstore.Store
	provider    embeddings.Provider
	fingerprint string
}

// Fingerprint identifies the embedding model, see ingest.Fingerprinter.
func (s *embeddedStore) Fingerprint() string {
	return s.fingerprint
}

// Close closes the store and then the provider.
func (s *embeddedStore) Close() error {
	return errors.Join(s.Store.Close(), s.provider.Close())
}

// openStore returns the store opener used by process and watch. The embedding
// model is only loaded once there is a PDF to process. Tests replace it.
var openStore = func(a *app) ingest.StoreOpener {
	return func(ctx context.Context, path string) (vectorstore.Store, error) {
		pcfg := embeddings.ProviderConfigFrom(a.cfg.Embeddings)
		if pcfg.Provider == "" || pcfg.Provider == "fastembed" {
			if err := prepareFastEmbed(ctx, os.Stderr); err != nil {
				return nil, err
			}
		}

		provider, err := embeddings.NewProvider(pcfg)
		if err != nil {
			return nil, fmt.Errorf("creating embeddings provider: %w", err)
		}

		store, err := vectorstore.NewStore(a.cfg.VectorStore, path, provider, provider.Dimension(), a.logger)
		if err != nil {
			_ = provider.Close()
			return nil, fmt.Errorf("opening vector store: %w", err)
		}

		return &embeddedStore{
			Store:       store,
			provider:    provider,
			fingerprint: embeddings.Fingerprint(pcfg, provider.Dimension()),
		}, nil
	}
}
