// Package cli — launch.go implements the "git-diff-extract launch" command.
//
// launch runs an external entry point (by default `uv run src/main.py`)
// the way a double-click launcher would: it checks that the tool exists,
// runs it with the terminal attached, and on failure prints the exit code
// and waits for Enter before passing the code through.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/git-diff-extract/internal/launcher"
)

// launchFlags holds the flag values for the launch command.
type launchFlags struct {
	// tool overrides launch.tool from settings.
	tool string

	// dir overrides launch.dir from settings.
	dir string
}

// NewLaunchCommand creates the "launch" cobra command.
func NewLaunchCommand() *cobra.Command {
	flags := &launchFlags{}

	cmd := &cobra.Command{
		Use:   "launch [-- args...]",
		Short: "Run the configured entry point with launcher semantics",
		Long: `Run the configured entry point (launch.tool and launch.args in settings,
by default "uv run src/main.py").

If the tool is not installed, an error is printed and the command exits
with code 1 without running anything. If the program exits with a non-zero
code, that code is printed and becomes the exit code of this command. In
both cases the command waits for Enter when the pause policy says so.

Arguments after "--" are appended to launch.args.

Examples:
  git-diff-extract launch
  git-diff-extract launch --tool python3 -- script.py --flag
  git-diff-extract launch --pause-on-error always`,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runLaunch(cmd.Context(), flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.tool, "tool", "", "Tool to run (default: launch.tool from settings)")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "Working directory (default: launch.dir from settings, or the current directory)")

	return cmd
}

func runLaunch(ctx context.Context, flags *launchFlags, extra []string) error {
	tool := flags.tool
	if tool == "" {
		tool = settings.Launch.Tool
	}
	dir := flags.dir
	if dir == "" {
		dir = settings.Launch.Dir
	}
	args := append(append([]string{}, settings.Launch.Args...), extra...)

	l := launcher.New(
		launcher.WithPauser(launcher.NewPauser(pausePolicy(), os.Stdin, os.Stderr)),
		launcher.WithLogger(slog.Default()),
	)
	VerboseLog("Launching %s %v in %q", tool, args, dir)

	code := l.Launch(ctx, tool, func(ctx context.Context, toolPath string) int {
		return l.Exec(ctx, toolPath, args, dir)
	})
	if code != 0 {
		// Launch has already reported and paused.
		return &exitStatus{code: code}
	}
	return nil
}
