//go:build cgo

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/litweaver/internal/embeddings"
)

func addPlatformCommands(root *cobra.Command) {
	root.AddCommand(newSetupCmd())
}

// prepareFastEmbed makes sure the ONNX runtime is installed, downloading it
// on first use. Progress goes to w.
func prepareFastEmbed(ctx context.Context, w io.Writer) error {
	_, err := embeddings.EnsureONNXRuntime(ctx, w)
	return err
}

func newSetupCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Download the ONNX runtime used for local embeddings",
		Long: `Download the ONNX runtime library required by the fastembed embeddings
provider. The library is installed to:
  ~/.config/litweaver/lib/

If the ONNX_PATH environment variable is set, that path takes precedence.
process downloads the runtime on first use as well; setup lets you do it
ahead of time, for example before going offline.

Examples:
  # Download the ONNX runtime
  litweaver setup

  # Force re-download even if already installed
  litweaver setup --force`,
		Args: cobra.NoArgs,
		// Needs no configuration
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd.Context(), cmd.OutOrStdout(), force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "force re-download even if the ONNX runtime exists")
	return cmd
}

func runSetup(ctx context.Context, out io.Writer, force bool) error {
	if !force {
		if path := embeddings.GetONNXLibraryPath(); path != "" {
			fmt.Fprintf(out, "ONNX runtime already installed at: %s\n", path)
			fmt.Fprintln(out, "Use --force to re-download.")
			return nil
		}
	}

	fmt.Fprintf(out, "Downloading ONNX runtime v%s...\n", embeddings.DefaultONNXRuntimeVersion)
	if err := embeddings.DownloadONNXRuntime(ctx, ""); err != nil {
		return fmt.Errorf("failed to download ONNX runtime: %w", err)
	}

	path := embeddings.GetONNXLibraryPath()
	if path == "" {
		return fmt.Errorf("ONNX runtime downloaded but library not found in %s", embeddings.ONNXInstallDir())
	}

	fmt.Fprintf(out, "ONNX runtime installed successfully at: %s\n", path)
	return nil
}
