// Package launcher checks that a required tool is available, dispatches to
// a program, and surfaces the program's exit code.
//
// The launcher holds no state of its own. Its contract is:
//   - tool missing from PATH: print a message, pause, exit 1, never run
//   - program exits 0: exit 0 without pausing
//   - program exits N != 0: print a message, pause, exit N
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

// ToolNotFoundError reports that a required tool could not be resolved.
type ToolNotFoundError struct {
	Tool string
	Err  error
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("%s not found: make sure it is installed and on PATH", e.Tool)
}

func (e *ToolNotFoundError) Unwrap() error {
	return e.Err
}

// LookupFunc resolves a tool name to an executable path. exec.LookPath
// satisfies it.
type LookupFunc func(file string) (string, error)

// RunFunc is the program the launcher dispatches to. It receives the
// resolved tool path and returns the exit code to surface.
type RunFunc func(ctx context.Context, toolPath string) int

// Launcher implements the check-dispatch-report cycle.
type Launcher struct {
	lookup LookupFunc
	pauser Pauser
	stderr io.Writer
	logger *slog.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithLookup replaces exec.LookPath.
func WithLookup(fn LookupFunc) Option {
	return func(l *Launcher) { l.lookup = fn }
}

// WithPauser sets how the launcher waits for acknowledgement after a
// failure. The default never pauses.
func WithPauser(p Pauser) Option {
	return func(l *Launcher) { l.pauser = p }
}

// WithStderr sets where failure messages are printed.
func WithStderr(w io.Writer) Option {
	return func(l *Launcher) { l.stderr = w }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) { l.logger = logger }
}

// New creates a Launcher.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		lookup: exec.LookPath,
		pauser: NoPause{},
		stderr: os.Stderr,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Preflight resolves tool to an executable path. Names containing a path
// separator are checked directly; bare names are searched on PATH.
func (l *Launcher) Preflight(tool string) (string, error) {
	if tool == "" {
		return "", &ToolNotFoundError{Tool: "(empty)", Err: exec.ErrNotFound}
	}
	path, err := l.lookup(tool)
	if err != nil {
		l.logger.Debug("Tool lookup failed", "tool", tool, "error", err)
		return "", &ToolNotFoundError{Tool: tool, Err: err}
	}
	l.logger.Debug("Resolved tool", "tool", tool, "path", path)
	return path, nil
}

// Launch checks that tool is available and, if so, runs the program.
//
// When the tool is missing, run is never invoked and the result is
// ExitGeneralError (1). Otherwise the program's own exit code is returned
// unchanged.
func (l *Launcher) Launch(ctx context.Context, tool string, run RunFunc) int {
	path, err := l.Preflight(tool)
	if err != nil {
		fmt.Fprintf(l.stderr, "Error: %v\n", err)
		l.pause()
		return int(model.ExitGeneralError)
	}
	return l.Guard(func() int { return run(ctx, path) })
}

// Guard runs the program and pauses if it fails. The exit code is passed
// through unchanged.
func (l *Launcher) Guard(run func() int) int {
	code := run()
	if code != int(model.ExitSuccess) {
		l.logger.Debug("Program exited with non-zero status", "code", code)
		fmt.Fprintf(l.stderr, "Program exited with code %d.\n", code)
		l.pause()
	}
	return code
}

// Exec runs an external program with the current process's stdio and
// returns its exit code.
//
// A program that cannot be started, or that is killed by a signal, maps to
// ExitGeneralError. Cancelling ctx kills the program.
func (l *Launcher) Exec(ctx context.Context, toolPath string, args []string, dir string) int {
	// #nosec G204 -- the launcher's whole purpose is to run the configured entry point.
	cmd := exec.CommandContext(ctx, toolPath, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	l.logger.Debug("Starting program", "path", toolPath, "args", args, "dir", dir)

	err := cmd.Run()
	if err == nil {
		return int(model.ExitSuccess)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code > 0 {
			return code
		}
		// ExitCode is -1 when the process was terminated by a signal.
		return int(model.ExitGeneralError)
	}

	fmt.Fprintf(l.stderr, "Error: failed to start %s: %v\n", toolPath, err)
	return int(model.ExitGeneralError)
}

func (l *Launcher) pause() {
	if err := l.pauser.Pause(); err != nil {
		l.logger.Debug("Pause failed", "error", err)
	}
}
