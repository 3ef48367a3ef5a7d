//go:build !cgo

package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// addPlatformCommands adds nothing: setup only installs the ONNX runtime
// that fastembed loads through cgo.
func addPlatformCommands(*cobra.Command) {}

// prepareFastEmbed is a no-op; NewProvider reports fastembed as unavailable.
func prepareFastEmbed(context.Context, io.Writer) error {
	return nil
}
