package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/litweaver/internal/ingest"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Long: `List the projects under the base directory with the number of PDFs
waiting in each papers/ directory.

Examples:
  litweaver list
  litweaver list --base-dir ~/research`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			a.runList(cmd.Context(), cmd.OutOrStdout())
			return nil
		}),
	}
}

func (a *app) runList(ctx context.Context, out io.Writer) {
	baseDir := a.cfg.Projects.BaseDir

	projects, err := a.projects.List(ctx, baseDir)
	if err != nil {
		a.logUnexpected(ctx, "listing projects failed", err)
		fmt.Fprintln(out, "An unexpected error occurred while listing projects. Check logs.")
		return
	}
	if len(projects) == 0 {
		fmt.Fprintf(out, "No projects found in '%s'. Create one with 'litweaver init PROJECT_NAME'.\n", baseDir)
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPDFS\tCREATED\tPATH")
	for _, p := range projects {
		pdfs := "?"
		if files, err := ingest.Discover(p.Paths.Papers); err != nil {
			a.logger.Warn(ctx, "counting PDFs failed", zap.String("project", p.Name), zap.Error(err))
		} else {
			pdfs = strconv.Itoa(len(files))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, pdfs, p.CreatedAt.Format("2006-01-02"), p.Paths.Root)
	}
	_ = w.Flush()
}
