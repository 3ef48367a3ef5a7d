package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/litweaver/internal/logging"
	"github.com/fyrsmithlabs/litweaver/internal/project"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init PROJECT_NAME",
		Short: "Create a new project",
		Long: `Create a new project under the base directory with an empty papers/
directory for PDFs and a vector_store/ directory for the index.

Project names may contain letters, digits, '-' and '_'.

Examples:
  # Create ./projects/lit-review
  litweaver init lit-review

  # Create the project somewhere else
  litweaver init lit-review --base-dir ~/research`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			a.runInit(cmd.Context(), cmd.OutOrStdout(), args[0])
			return nil
		}),
	}
}

// runInit creates the project and reports the outcome on out.
func (a *app) runInit(ctx context.Context, out io.Writer, name string) {
	ctx = logging.WithProject(ctx, name)

	var p *project.Project
	err := guard(func() error {
		var err error
		p, err = a.projects.Create(ctx, name, a.cfg.Projects.BaseDir)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, project.ErrProjectExists):
		a.logger.Warn(ctx, "project already exists", zap.Error(err))
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	default:
		a.logUnexpected(ctx, "project initialisation failed", err)
		fmt.Fprintln(out, "An unexpected error occurred during initialisation. Check logs.")
		return
	}

	a.logger.Info(ctx, "project initialised",
		zap.String("project_id", p.ID),
		zap.String("root", p.Paths.Root),
	)

	fmt.Fprintf(out, "Project '%s' initialised successfully.\n", name)
	fmt.Fprintf(out, "  - Project Root: %s\n", p.Paths.Root)
	fmt.Fprintf(out, "  - Papers Dir:   %s\n", p.Paths.Papers)
	fmt.Fprintf(out, "  - Vector Store: %s\n", p.Paths.VectorStore)
	fmt.Fprintf(out, "\nPlease add your PDF papers to the '%s' directory.\n", relToCwd(p.Paths.Papers))
}
