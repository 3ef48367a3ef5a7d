package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/litweaver/internal/ignore"
	"github.com/fyrsmithlabs/litweaver/internal/logging"
	"github.com/fyrsmithlabs/litweaver/internal/project"
)

// defaultDebounce is how long the papers directory must stay quiet before a
// change triggers processing.
const defaultDebounce = 2 * time.Second

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch PROJECT_NAME",
		Short: "Process PDFs as they are added, changed or removed",
		Long: `Process the project once, then watch its papers/ directory and process
it again whenever PDFs are added, changed or removed. Bursts of changes,
such as copying a folder of papers, trigger a single run.

Stop watching with Ctrl+C.

Examples:
  litweaver watch lit-review
  litweaver watch lit-review --debounce 10s`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			ctx := logging.WithProject(cmd.Context(), args[0])
			out := cmd.OutOrStdout()

			p, ok := a.lookupProject(ctx, out, args[0])
			if !ok {
				return nil
			}
			if err := guard(func() error { return a.watch(ctx, out, p, debounce) }); err != nil {
				a.logUnexpected(ctx, "watch failed", err)
				fmt.Fprintln(out, "An unexpected error occurred while watching. Check logs.")
			}
			return nil
		}),
	}

	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "quiet period before changes are processed")
	return cmd
}

// watch processes p, then reprocesses it after each debounced burst of
// relevant changes until ctx is canceled.
func (a *app) watch(ctx context.Context, out io.Writer, p *project.Project, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch before the first run so papers added during it are not missed
	if err := addTree(watcher, p.Paths.Papers); err != nil {
		return err
	}

	a.processProject(ctx, out, p, false)
	fmt.Fprintf(out, "\nWatching '%s' for changes. Press Ctrl+C to stop.\n", relToCwd(p.Paths.Papers))

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Stopped watching.")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, ev.Name); err != nil {
						a.logger.Warn(ctx, "cannot watch new directory", zap.String("path", ev.Name), zap.Error(err))
					}
					pending = time.After(debounce)
					continue
				}
			}
			if !relevant(ev) {
				continue
			}
			a.logger.Debug(ctx, "papers changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			pending = time.After(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn(ctx, "watcher error", zap.Error(err))

		case <-pending:
			pending = nil
			fmt.Fprintln(out)
			a.processProject(ctx, out, p, false)
		}
	}
}

// relevant reports whether ev can change what process would do. A removed
// or renamed entry may be a directory holding PDFs.
func relevant(ev fsnotify.Event) bool {
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return true
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		name := filepath.Base(ev.Name)
		return name == ignore.FileName || strings.EqualFold(filepath.Ext(name), ".pdf")
	}
	return false
}

// addTree watches root and every directory below it.
func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
