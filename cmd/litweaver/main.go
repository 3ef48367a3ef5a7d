// Package main implements the litweaver CLI, which turns a directory of
// research papers into a searchable vector index.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Build information, set via ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
