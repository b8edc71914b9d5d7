// Package cli — extract.go implements the "git-diff-extract extract" command.
//
// The extract command copies every file changed between two revisions into
// <output>/<folder>/old and <output>/<folder>/new. By default it asks for
// confirmation first; --yes skips the prompt. When the output folder already
// exists, --on-exists (or on_exists in settings) decides whether it is
// overwritten, reused with backups, or the command fails.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/git-diff-extract/internal/config"
	"github.com/shinji-kodama/git-diff-extract/internal/extract"
	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

// extractFlags holds the flag values for the extract command.
type extractFlags struct {
	diffFlags

	output   string
	folder   string
	workers  int
	onExists string

	// yes skips the confirmation prompt.
	yes bool
}

// NewExtractCommand creates the "extract" cobra command.
func NewExtractCommand() *cobra.Command {
	flags := &extractFlags{}

	cmd := &cobra.Command{
		Use:     "extract",
		Aliases: []string{"copy"},
		Short:   "Copy the files changed between two revisions into an output folder",
		Long: `Copy the files changed between two revisions into an output folder.

Modified, renamed and copied files are written to both old/ and new/, added
files to new/ only and deleted files to old/ only. Changed submodules are
followed and their files are written under the submodule path.

Exit code 4 means some files could not be extracted; they are listed in the
summary.

Examples:
  git-diff-extract extract --repo . --old v1.0 --new main --output /tmp --folder review
  git-diff-extract extract --yes --on-exists overwrite
  git-diff-extract extract --json --yes`,

		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationRequires: "git"},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Directory the output folder is created in (default: output_path from settings)")
	cmd.Flags().StringVarP(&flags.folder, "folder", "f", "", "Output folder name (default: output_folder_name from settings)")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Concurrent file copies (default: workers from settings, or one per CPU)")
	cmd.Flags().StringVar(&flags.onExists, "on-exists", "",
		"When the output folder exists: ask, overwrite, keep, fail (default: on_exists from settings)")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Extract without confirmation")

	return cmd
}

// fill takes missing values from s.
func (f *extractFlags) fill(s config.Settings) {
	f.diffFlags.fill(s)
	if f.output == "" {
		f.output = s.OutputPath
	}
	if f.folder == "" {
		f.folder = s.OutputFolderName
	}
	if f.workers == 0 {
		f.workers = s.EffectiveWorkers()
	}
	if f.onExists == "" {
		f.onExists = s.OnExists
	}
}

func (f *extractFlags) validate() (extract.ConflictPolicy, error) {
	if err := f.diffFlags.validate(); err != nil {
		return "", err
	}
	if f.output == "" {
		return "", model.NewCLIError(model.ExitInvalidInput, "output path is required (--output or output_path in settings)")
	}
	if f.folder == "" {
		return "", model.NewCLIError(model.ExitInvalidInput, "output folder name is required (--folder or output_folder_name in settings)")
	}
	if f.workers < 0 {
		return "", model.NewCLIError(model.ExitInvalidInput, fmt.Sprintf("--workers must not be negative, got %d", f.workers))
	}
	policy, err := extract.ParseConflictPolicy(f.onExists)
	if err != nil {
		return "", model.WrapCLIError(model.ExitInvalidInput, "invalid --on-exists", err)
	}
	return policy, nil
}

func runExtract(ctx context.Context, in io.Reader, out, errOut io.Writer, flags *extractFlags) error {
	flags.fill(settings)
	policy, err := flags.validate()
	if err != nil {
		return err
	}

	repo, err := flags.openRepo(ctx)
	if err != nil {
		return interrupted(ctx, err)
	}
	if err := extract.ValidateOutputPath(flags.output, flags.folder); err != nil {
		return err
	}
	flags.save(func(s *config.Settings) {
		s.OutputPath = flags.output
		s.OutputFolderName = flags.folder
	})

	plan, err := extract.BuildPlan(ctx, repo.engine, repo.oldSHA, repo.newSHA)
	if err != nil {
		return interrupted(ctx, err)
	}
	if len(plan.Entries) == 0 && len(plan.Submodules) == 0 {
		if IsJSONOutput() {
			return printJSON(out, newExtractResultJSON(extract.Layout{}, model.ExtractStats{}, repo))
		}
		_, err := fmt.Fprintln(out, Gold("No changes found between the two revisions."))
		return err
	}

	p := newPrompter(in, errOut)
	if !flags.yes {
		question := fmt.Sprintf("Extract %d changed file(s) and %d submodule(s) into %s?",
			len(plan.Entries), len(plan.Submodules), flags.folder)
		confirmed, err := p.Confirm(question)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read user input", err)
		}
		if !confirmed {
			return model.NewCLIError(model.ExitUserCancelled, "operation cancelled by user")
		}
	}

	var conflictPrompter extract.ConflictPrompter
	if !flags.yes {
		conflictPrompter = p
	}
	layout, err := extract.PrepareOutput(flags.output, flags.folder, policy, conflictPrompter)
	if err != nil {
		return err
	}
	VerboseLog("Extracting into %s with %d workers", layout.Root, flags.workers)

	x := extract.NewExtractor(repo.engine, layout, extract.WithWorkers(flags.workers))
	stats, runErr := x.RunPlan(ctx, plan, repo.oldSHA, repo.newSHA)
	if runErr != nil && !errors.Is(runErr, extract.ErrCancelled) {
		return interrupted(ctx, runErr)
	}

	if IsJSONOutput() {
		if err := printJSON(out, newExtractResultJSON(layout, stats, repo)); err != nil {
			return err
		}
	} else {
		text, err := RenderStats(stats, layout)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to render summary", err)
		}
		if _, err := fmt.Fprint(out, text); err != nil {
			return err
		}
	}

	if runErr != nil {
		return model.WrapCLIError(model.ExitUserCancelled, "extraction cancelled", runErr)
	}
	if stats.HasFailures() {
		return model.NewCLIError(model.ExitPartialFailure,
			fmt.Sprintf("%d file(s) could not be extracted", len(stats.Failed)))
	}
	return nil
}

type extractResultJSON struct {
	Old     string             `json:"old"`
	New     string             `json:"new"`
	Output  string             `json:"output,omitempty"`
	OldDir  string             `json:"oldDir,omitempty"`
	NewDir  string             `json:"newDir,omitempty"`
	Reused  bool               `json:"reused"`
	Entries int                `json:"entries"`
	Copied  int                `json:"copied"`
	Skipped int                `json:"skipped"`
	Bytes   int64              `json:"bytes"`
	Size    string             `json:"size"`
	Failed  []model.FailedFile `json:"failed"`
}

func newExtractResultJSON(layout extract.Layout, stats model.ExtractStats, repo *repoContext) extractResultJSON {
	result := extractResultJSON{
		Old:     repo.oldSHA,
		New:     repo.newSHA,
		Reused:  layout.Reused,
		Entries: stats.Entries,
		Copied:  stats.Copied,
		Skipped: stats.Skipped,
		Bytes:   stats.Bytes,
		Size:    extract.FormatSize(stats.Bytes),
		Failed:  make([]model.FailedFile, 0, len(stats.Failed)),
	}
	if layout.Root != "" {
		result.Output = layout.Root
		result.OldDir = layout.OldDir()
		result.NewDir = layout.NewDir()
	}
	result.Failed = append(result.Failed, stats.Failed...)
	return result
}
