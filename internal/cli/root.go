// Package cli implements the cobra-based CLI commands for git-diff-extract.
//
// Each subcommand (list, extract, launch, config) is defined in its own file
// within this package. This file defines the root command, the global flags,
// and the process-level plumbing shared by every subcommand: settings,
// logging, the git preflight and error reporting.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/shinji-kodama/git-diff-extract/internal/config"
	"github.com/shinji-kodama/git-diff-extract/internal/gitrepo"
	"github.com/shinji-kodama/git-diff-extract/internal/launcher"
	"github.com/shinji-kodama/git-diff-extract/internal/logging"
	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

// Global flag variables shared across all subcommands.
var (
	// jsonOutput switches command output to JSON on stdout.
	jsonOutput bool

	// verbose lowers the console log level to debug.
	verbose bool

	// configFlag overrides the settings file location.
	configFlag string

	// gitFlag overrides the git executable.
	gitFlag string

	// pauseFlag overrides pause_on_error from the settings file.
	pauseFlag string
)

// State resolved by the root PersistentPreRunE.
var (
	settingsPath  string
	settings      = config.Default()
	gitExecutable = "git"
	closeLog      = func() error { return nil }
)

// annotationRequires names the external tool a command needs. The root
// command preflights it before the command runs.
const annotationRequires = "requires"

// Version, Commit and Date are set at build time via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "git-diff-extract",
		Short: "Extract the files changed between two Git revisions",
		Long: `git-diff-extract compares two revisions of a Git repository and copies
every changed file into an output folder with one directory per side:

  <output>/<folder>/old/   content at the old revision
  <output>/<folder>/new/   content at the new revision

Changed submodules are followed and their files are placed under the
submodule path. Missing flags are filled from the settings file, and the
values used are saved back for the next run.`,

		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return prepare(cmd)
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Settings file (.json, .jsonc, .yaml, .toml; default: settings.json next to the executable)")
	rootCmd.PersistentFlags().StringVar(&gitFlag, "git", "", "Git executable (default: portable_git_path, PortableGit, or git on PATH)")
	rootCmd.PersistentFlags().StringVar(&pauseFlag, "pause-on-error", "",
		"Wait for Enter after a failure: auto, always, never (default: from settings)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return model.WrapCLIError(model.ExitInvalidInput, "invalid arguments", err)
	})

	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewExtractCommand())
	rootCmd.AddCommand(NewLaunchCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// prepare loads settings, installs the logger and, for commands annotated
// with a required tool, checks that the tool is available.
func prepare(cmd *cobra.Command) error {
	settingsPath = configFlag
	if settingsPath == "" {
		settingsPath = config.DefaultPath()
	}

	loaded, loadErr := config.Load(settingsPath)
	settings = loaded

	closer, err := logging.Setup(logging.Options{
		Verbose:  verbose,
		Quiet:    jsonOutput && !verbose,
		NoColor:  !isatty.IsTerminal(os.Stderr.Fd()),
		FilePath: settings.LogFile,
	})
	closeLog = closer
	if err != nil {
		slog.Warn("Log file disabled", "path", settings.LogFile, "error", err)
	}
	if loadErr != nil {
		// Same fallback as a missing file: keep going with defaults.
		slog.Warn("Failed to load settings, using defaults", "path", settingsPath, "error", loadErr)
	}
	slog.Debug("Settings loaded", "path", settingsPath)

	if pauseFlag != "" {
		if _, err := launcher.ParsePausePolicy(pauseFlag); err != nil {
			return model.WrapCLIError(model.ExitInvalidInput, "invalid --pause-on-error", err)
		}
	}

	if requiredTool(cmd) != "git" {
		return nil
	}

	gitExecutable = gitFlag
	if gitExecutable == "" {
		gitExecutable = gitrepo.ResolveGitExecutable(settings.PortableGitPath, executableDir())
	}
	resolved, err := launcher.New().Preflight(gitExecutable)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "git is required", err)
	}
	gitExecutable = resolved
	VerboseLog("Using git at %s", gitExecutable)
	return nil
}

// requiredTool returns the tool annotation of cmd or its nearest ancestor.
func requiredTool(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if tool, ok := c.Annotations[annotationRequires]; ok {
			return tool
		}
	}
	return ""
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// newEngine creates a git engine for repo with the resolved executable and
// the configured timeout.
func newEngine(repo string) (*gitrepo.Engine, error) {
	timeout, err := settings.Timeout()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidInput, "invalid settings", err)
	}
	return gitrepo.NewEngine(repo, gitrepo.WithGitPath(gitExecutable), gitrepo.WithTimeout(timeout)), nil
}

// pausePolicy returns the effective pause policy: the flag, then the
// settings file, then auto.
func pausePolicy() launcher.PausePolicy {
	value := pauseFlag
	if value == "" {
		value = settings.PauseOnError
	}
	policy, err := launcher.ParsePausePolicy(value)
	if err != nil {
		return launcher.PauseAuto
	}
	return policy
}

// settingsPauser picks the pauser when the pause happens, after flags and
// settings have been read.
type settingsPauser struct{}

func (settingsPauser) Pause() error {
	return launcher.NewPauser(pausePolicy(), os.Stdin, os.Stderr).Pause()
}

// exitStatus ends the process with code after the command has already
// reported the failure and paused on its own.
type exitStatus struct {
	code int
}

func (e *exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the root command and exits the process with its exit code.
// Failures are reported on stderr and, depending on the pause policy, wait
// for Enter before the process exits.
func Execute(ctx context.Context, rootCmd *cobra.Command) {
	os.Exit(run(ctx, rootCmd))
}

func run(ctx context.Context, rootCmd *cobra.Command) int {
	defer func() { _ = closeLog() }()

	var status *exitStatus
	l := launcher.New(launcher.WithPauser(settingsPauser{}))
	code := l.Guard(func() int {
		err := rootCmd.ExecuteContext(ctx)
		if errors.As(err, &status) {
			return int(model.ExitSuccess)
		}
		if err != nil {
			printError(err)
		}
		return int(model.ExitCodeOf(err))
	})
	if status != nil {
		return status.code
	}
	return code
}

// printError outputs an error in the appropriate format (JSON or text)
// based on the --json global flag. Errors always go to stderr.
func printError(err error) {
	message, detail := err.Error(), ""
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		message = cliErr.Message
		if cliErr.Err != nil {
			detail = cliErr.Err.Error()
		}
	}

	if jsonOutput {
		errObj := map[string]any{
			"error": map[string]any{
				"code":    int(model.ExitCodeOf(err)),
				"message": message,
			},
		}
		if detail != "" {
			if errMap, ok := errObj["error"].(map[string]any); ok {
				errMap["detail"] = detail
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}

	if detail != "" {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", Red("Error:"), message, detail)
	} else {
		fmt.Fprintf(os.Stderr, "%s %s\n", Red("Error:"), message)
	}
}

// VerboseLog writes a debug record. It is shown on the console with
// --verbose and always written to the log file when one is configured.
func VerboseLog(format string, args ...any) {
	slog.Debug(fmt.Sprintf(format, args...))
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v to w with 2-space indentation.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to encode JSON output", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
