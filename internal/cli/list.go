// Package cli — list.go implements the "git-diff-extract list" command.
//
// The list command shows what an extraction would copy: every changed file
// between two revisions with its status, plus the submodules whose pointer
// moved. Nothing is written except the settings file.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/git-diff-extract/internal/config"
	"github.com/shinji-kodama/git-diff-extract/internal/extract"
	"github.com/shinji-kodama/git-diff-extract/internal/gitrepo"
	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

// diffFlags are the inputs shared by list and extract. Empty values are
// filled from the settings file.
type diffFlags struct {
	repo   string
	oldRev string
	newRev string
	noSave bool
}

func (f *diffFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.repo, "repo", "", "Repository path (default: repo_path from settings)")
	cmd.Flags().StringVar(&f.oldRev, "old", "", "Old revision: SHA, branch or tag (default: old_sha from settings)")
	cmd.Flags().StringVar(&f.newRev, "new", "", "New revision: SHA, branch or tag (default: new_sha from settings)")
	cmd.Flags().BoolVar(&f.noSave, "no-save", false, "Do not save the inputs back to the settings file")
}

// fill takes missing values from s.
func (f *diffFlags) fill(s config.Settings) {
	if f.repo == "" {
		f.repo = s.RepoPath
	}
	if f.oldRev == "" {
		f.oldRev = s.OldSHA
	}
	if f.newRev == "" {
		f.newRev = s.NewSHA
	}
}

// validate checks the inputs that do not need git.
func (f *diffFlags) validate() error {
	if f.repo == "" {
		return model.NewCLIError(model.ExitInvalidInput, "repository path is required (--repo or repo_path in settings)")
	}
	info, err := os.Stat(f.repo)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("repository path does not exist: %s", f.repo), err)
	}
	if !info.IsDir() {
		return model.NewCLIError(model.ExitInvalidInput, fmt.Sprintf("repository path is not a directory: %s", f.repo))
	}
	if f.oldRev == "" {
		return model.NewCLIError(model.ExitInvalidInput, "old revision is required (--old or old_sha in settings)")
	}
	if f.newRev == "" {
		return model.NewCLIError(model.ExitInvalidInput, "new revision is required (--new or new_sha in settings)")
	}
	return nil
}

// save records the inputs in the settings file unless --no-save was given.
// A failure is logged, not returned.
func (f *diffFlags) save(extra func(*config.Settings)) {
	if f.noSave {
		return
	}
	err := config.Update(settingsPath, func(s *config.Settings) {
		s.RepoPath = f.repo
		s.OldSHA = f.oldRev
		s.NewSHA = f.newRev
		if extra != nil {
			extra(s)
		}
	})
	if err != nil {
		slog.Warn("Failed to save settings", "path", settingsPath, "error", err)
		return
	}
	VerboseLog("Saved settings to %s", settingsPath)
}

// repoContext is an opened repository with both revisions resolved.
type repoContext struct {
	engine *gitrepo.Engine
	oldSHA string
	newSHA string
}

// openRepo validates the repository and resolves both revisions.
func (f *diffFlags) openRepo(ctx context.Context) (*repoContext, error) {
	engine, err := newEngine(f.repo)
	if err != nil {
		return nil, err
	}
	if !engine.ValidateRepository(ctx) {
		return nil, model.NewCLIError(model.ExitInvalidInput,
			fmt.Sprintf("not a git repository: %s", engine.RepoPath()))
	}

	oldSHA, err := engine.ResolveRevision(ctx, f.oldRev)
	if err != nil {
		return nil, err
	}
	newSHA, err := engine.ResolveRevision(ctx, f.newRev)
	if err != nil {
		return nil, err
	}
	VerboseLog("Resolved %s -> %s, %s -> %s", f.oldRev, oldSHA, f.newRev, newSHA)
	return &repoContext{engine: engine, oldSHA: oldSHA, newSHA: newSHA}, nil
}

// interrupted maps an error caused by a cancelled context (Ctrl+C) to
// ExitUserCancelled. Other errors are returned unchanged.
func interrupted(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil {
		return err
	}
	return model.WrapCLIError(model.ExitUserCancelled, "operation cancelled", err)
}

// NewListCommand creates the "list" cobra command.
func NewListCommand() *cobra.Command {
	flags := &diffFlags{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"diff"},
		Short:   "List the files changed between two revisions",
		Long: `List the files changed between two revisions, with their status
(modified, added, deleted, renamed, ...), and the submodules whose commit
changed.

Examples:
  git-diff-extract list --repo . --old v1.0 --new main
  git-diff-extract list --json`,

		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationRequires: "git"},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	flags.register(cmd)
	return cmd
}

func runList(ctx context.Context, out io.Writer, flags *diffFlags) error {
	flags.fill(settings)
	if err := flags.validate(); err != nil {
		return err
	}

	repo, err := flags.openRepo(ctx)
	if err != nil {
		return interrupted(ctx, err)
	}
	flags.save(nil)

	plan, err := extract.BuildPlan(ctx, repo.engine, repo.oldSHA, repo.newSHA)
	if err != nil {
		return interrupted(ctx, err)
	}
	VerboseLog("Found %d changed files and %d changed submodules", len(plan.Entries), len(plan.Submodules))

	if IsJSONOutput() {
		return printJSON(out, newListResultJSON(repo, plan))
	}
	text, err := RenderPlan(plan)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to render changes", err)
	}
	_, err = fmt.Fprint(out, text)
	return err
}

type listResultJSON struct {
	Repo       string              `json:"repo"`
	Old        string              `json:"old"`
	New        string              `json:"new"`
	Files      []listFileJSON      `json:"files"`
	Submodules []listSubmoduleJSON `json:"submodules"`
}

type listFileJSON struct {
	Status      string `json:"status"`
	Description string `json:"description"`
	Path        string `json:"path"`
	OldPath     string `json:"oldPath,omitempty"`
	Similarity  int    `json:"similarity,omitempty"`
}

type listSubmoduleJSON struct {
	Path      string `json:"path"`
	OldCommit string `json:"oldCommit,omitempty"`
	NewCommit string `json:"newCommit,omitempty"`
}

func newListResultJSON(repo *repoContext, plan extract.Plan) listResultJSON {
	result := listResultJSON{
		Repo:       repo.engine.RepoPath(),
		Old:        repo.oldSHA,
		New:        repo.newSHA,
		Files:      make([]listFileJSON, 0, len(plan.Entries)),
		Submodules: make([]listSubmoduleJSON, 0, len(plan.Submodules)),
	}
	for _, e := range plan.Entries {
		entry := listFileJSON{
			Status:      e.Status.String(),
			Description: e.Status.Description(e.Similarity),
			Path:        e.Path(),
			Similarity:  e.Similarity,
		}
		if e.IsRename() {
			entry.OldPath = e.OldPath
		}
		result.Files = append(result.Files, entry)
	}
	for _, s := range plan.Submodules {
		result.Submodules = append(result.Submodules, listSubmoduleJSON{
			Path:      s.Path,
			OldCommit: s.OldCommit,
			NewCommit: s.NewCommit,
		})
	}
	return result
}
