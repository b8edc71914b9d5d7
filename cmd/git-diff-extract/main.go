// Package main is the entry point for the git-diff-extract CLI.
//
// This binary extracts the files changed between two Git revisions into an
// old/new folder pair, and doubles as a launcher for an external entry
// point. All functionality lives in internal/cli.
//
// Build-time variables (version, commit, date) are injected via ldflags.
// During development, they default to "dev", "none", and "unknown".
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/shinji-kodama/git-diff-extract/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Ctrl+C cancels in-flight git commands and pending file copies.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli.Execute(ctx, cli.NewRootCommand())
}
