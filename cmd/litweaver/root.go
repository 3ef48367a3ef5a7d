package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/litweaver/internal/config"
	"github.com/fyrsmithlabs/litweaver/internal/logging"
	"github.com/fyrsmithlabs/litweaver/internal/project"
	"github.com/fyrsmithlabs/litweaver/internal/telemetry"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	baseDir    string
	logLevel   string
}

// app is what every subcommand needs once the configuration is loaded.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	projects  project.Manager
}

// newLogger builds the process logger. Tests replace it to observe logs.
var newLogger = func(cfg *config.Config) (*logging.Logger, error) {
	lc, err := logging.FromAppConfig(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(lc)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:   "litweaver",
		Short: "Build a searchable vector index from research papers",
		Long: `litweaver manages literature review projects. Each project holds a
papers/ directory of PDFs and a vector_store/ directory with the
embedded text chunks of those papers.

Examples:
  # Create a project, then add PDFs to projects/lit-review/papers/
  litweaver init lit-review

  # Extract, chunk and embed the papers
  litweaver process lit-review

  # Keep the index current while papers are added
  litweaver watch lit-review`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.start(cmd, opts)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			a.stop(cmd.Context())
			return nil
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("litweaver {{.Version}} (commit %s, built %s)\n", gitCommit, buildDate))

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.config/litweaver/config.yaml)")
	flags.StringVar(&opts.baseDir, "base-dir", "", "directory holding all projects (default ./projects)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn or error")

	cmd.AddCommand(
		newInitCmd(a),
		newProcessCmd(a),
		newListCmd(a),
		newWatchCmd(a),
	)
	addPlatformCommands(cmd)

	return cmd
}

// start loads configuration and builds the logger and telemetry.
func (a *app) start(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.baseDir != "" {
		cfg.Projects.BaseDir = opts.baseDir
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	ctx := logging.WithRunID(logging.WithCommand(cmd.Context(), cmd.Name()), uuid.NewString())
	ctx = logging.WithLogger(ctx, logger)

	tel, err := telemetry.New(ctx, cfg.Telemetry, version, logger)
	if err != nil {
		_ = logger.Close()
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.telemetry = tel
	a.projects = project.NewManager()

	cmd.SetContext(ctx)
	logger.Debug(ctx, "litweaver starting",
		zap.String("version", version),
		zap.String("base_dir", cfg.Projects.BaseDir),
		zap.String("embeddings_provider", cfg.Embeddings.Provider),
		zap.String("vectorstore_provider", cfg.VectorStore.Provider),
	)
	return nil
}

// stop flushes telemetry and the log file. It is safe to call twice.
func (a *app) stop(ctx context.Context) {
	if a.telemetry != nil {
		// The command context may already be canceled by a signal
		if err := a.telemetry.Shutdown(context.WithoutCancel(ctx)); err != nil {
			a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
		}
		a.telemetry = nil
	}
	if a.logger != nil {
		_ = a.logger.Close()
		a.logger = logging.NewNop()
	}
}

// run wraps a RunE so that stop also runs when the command fails.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.stop(cmd.Context())
		return fn(cmd, args)
	}
}

// panicError is a recovered panic.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// guard runs fn, turning a panic into a *panicError.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return fn()
}

// logUnexpected records an error the user only sees a generic message for.
func (a *app) logUnexpected(ctx context.Context, msg string, err error) {
	fields := []zap.Field{zap.Error(err)}
	var pe *panicError
	if errors.As(err, &pe) {
		fields = append(fields, zap.ByteString("stack", pe.stack))
	}
	a.logger.Error(ctx, msg, fields...)
}

// relToCwd returns path relative to the working directory when it is below it.
func relToCwd(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(cwd, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}
