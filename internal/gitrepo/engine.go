// Package gitrepo wraps the git CLI for the queries git-diff-extract needs.
//
// Design decisions:
//   - Every command runs non-interactively: stdin is the null device, the
//     pager and editor are disabled and credential prompts are turned off,
//     so a misconfigured repository fails fast instead of hanging.
//   - All errors from Git commands are wrapped in model.CLIError with
//     ExitGitError to enable proper CLI exit code handling.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

const (
	// DefaultTimeout bounds a single git invocation.
	DefaultTimeout = 300 * time.Second

	// DefaultBlobTimeout bounds a single `git show <rev>:<path>` call.
	DefaultBlobTimeout = 60 * time.Second

	// EmptyTree is the object id of the empty tree. Diffing against it lists
	// every file of the other revision as added or deleted.
	EmptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
)

// ErrPathNotFound is returned by FileContent when the path does not exist
// at the requested revision.
var ErrPathNotFound = errors.New("path not found at revision")

// Engine runs git commands against a single repository.
//
// An Engine is safe for concurrent use: it holds no mutable state and each
// call spawns its own git process.
type Engine struct {
	repoPath    string
	gitPath     string
	timeout     time.Duration
	blobTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithGitPath sets the git executable. Defaults to "git" resolved on PATH.
func WithGitPath(path string) Option {
	return func(e *Engine) {
		if path != "" {
			e.gitPath = path
		}
	}
}

// WithTimeout sets the per-command timeout. Blob reads use the smaller of
// this value and DefaultBlobTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
			if d < e.blobTimeout {
				e.blobTimeout = d
			}
		}
	}
}

// NewEngine creates an Engine for the repository at repoPath. The path is
// made absolute so that submodule engines and error messages are stable.
func NewEngine(repoPath string, opts ...Option) *Engine {
	if abs, err := filepath.Abs(repoPath); err == nil {
		repoPath = abs
	}
	e := &Engine{
		repoPath:    repoPath,
		gitPath:     "git",
		timeout:     DefaultTimeout,
		blobTimeout: DefaultBlobTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RepoPath returns the absolute repository path the engine operates on.
func (e *Engine) RepoPath() string {
	return e.repoPath
}

// GitPath returns the git executable used by the engine.
func (e *Engine) GitPath() string {
	return e.gitPath
}

// ValidateRepository reports whether RepoPath is a Git working tree.
//
// A `.git` entry (directory for a normal clone, file for a worktree or
// submodule) is accepted immediately. Otherwise git itself is asked, which
// covers subdirectories of a working tree.
func (e *Engine) ValidateRepository(ctx context.Context) bool {
	if _, err := os.Lstat(filepath.Join(e.repoPath, ".git")); err == nil {
		return true
	}
	out, err := e.run(ctx, e.timeout, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(out)) == "true"
}

// ValidateRevision reports whether rev names a commit in the repository.
func (e *Engine) ValidateRevision(ctx context.Context, rev string) bool {
	_, err := e.ResolveRevision(ctx, rev)
	return err == nil
}

// ResolveRevision returns the full commit SHA that rev points to.
//
// The `^{commit}` suffix peels annotated tags and rejects trees and blobs,
// so only revisions that can be diffed are accepted.
func (e *Engine) ResolveRevision(ctx context.Context, rev string) (string, error) {
	if strings.TrimSpace(rev) == "" {
		return "", model.NewCLIError(model.ExitInvalidInput, "revision must not be empty")
	}
	if rev == EmptyTree {
		return rev, nil
	}
	out, err := e.run(ctx, e.timeout, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", model.WrapCLIError(model.ExitGitError, fmt.Sprintf("revision %q does not exist", rev), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// DiffEntries lists the paths that differ between oldRev and newRev.
//
// It runs `git diff --name-status -z`, which separates every field with a
// NUL byte so that paths containing spaces, tabs or newlines survive intact.
func (e *Engine) DiffEntries(ctx context.Context, oldRev, newRev string) ([]model.DiffEntry, error) {
	out, err := e.run(ctx, e.timeout, "diff", "--name-status", "-z", "--no-ext-diff", oldRev, newRev)
	if err != nil {
		return nil, err
	}
	return parseNameStatus(string(out)), nil
}

// FileContent returns the raw bytes of path as of rev. Content is never
// decoded, so binary files are copied byte-for-byte.
//
// Returns ErrPathNotFound when the path does not exist at rev.
func (e *Engine) FileContent(ctx context.Context, rev, path string) ([]byte, error) {
	spec := rev + ":" + filepath.ToSlash(path)
	out, err := e.run(ctx, e.blobTimeout, "show", spec)
	if err != nil {
		if isMissingPath(err) {
			return nil, fmt.Errorf("%s: %w", spec, ErrPathNotFound)
		}
		return nil, err
	}
	return out, nil
}

// SubmoduleChanges lists the gitlinks whose recorded commit differs between
// oldRev and newRev, sorted by path.
//
// A side that cannot be listed (for example the empty tree) contributes no
// gitlinks, so submodules present only on the other side show up as added
// or removed.
func (e *Engine) SubmoduleChanges(ctx context.Context, oldRev, newRev string) ([]model.SubmoduleChange, error) {
	oldLinks := e.gitlinks(ctx, oldRev)
	newLinks := e.gitlinks(ctx, newRev)

	paths := make(map[string]struct{}, len(oldLinks)+len(newLinks))
	for p := range oldLinks {
		paths[p] = struct{}{}
	}
	for p := range newLinks {
		paths[p] = struct{}{}
	}

	var changes []model.SubmoduleChange
	for p := range paths {
		oldCommit, newCommit := oldLinks[p], newLinks[p]
		if oldCommit == newCommit {
			continue
		}
		changes = append(changes, model.SubmoduleChange{
			Path:      p,
			OldCommit: oldCommit,
			NewCommit: newCommit,
		})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// gitlinks returns the path → commit map of submodule entries at rev.
func (e *Engine) gitlinks(ctx context.Context, rev string) map[string]string {
	if rev == "" || rev == EmptyTree {
		return map[string]string{}
	}
	out, err := e.run(ctx, e.timeout, "ls-tree", "-r", "-z", rev)
	if err != nil {
		return map[string]string{}
	}
	return parseLsTreeGitlinks(string(out))
}

// IsSubmoduleInitialized reports whether the submodule at path (relative to
// the repository root) has been checked out.
//
// An initialized submodule has a `.git` directory (legacy layout) or a
// `.git` file with a "gitdir: <path>" pointer into the parent's
// .git/modules directory. A relative gitdir is resolved against the
// submodule directory and must exist.
func (e *Engine) IsSubmoduleInitialized(path string) bool {
	subDir := filepath.Join(e.repoPath, filepath.FromSlash(path))
	gitPath := filepath.Join(subDir, ".git")

	info, err := os.Lstat(gitPath)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return true
	}

	content, err := os.ReadFile(gitPath)
	if err != nil {
		return false
	}
	gitdir, ok := strings.CutPrefix(strings.TrimSpace(string(content)), "gitdir:")
	if !ok {
		return false
	}
	gitdir = strings.TrimSpace(gitdir)
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(subDir, gitdir)
	}
	_, err = os.Stat(gitdir)
	return err == nil
}

// Submodule returns an Engine for the submodule at path, sharing this
// engine's git executable and timeouts.
func (e *Engine) Submodule(path string) *Engine {
	return &Engine{
		repoPath:    filepath.Join(e.repoPath, filepath.FromSlash(path)),
		gitPath:     e.gitPath,
		timeout:     e.timeout,
		blobTimeout: e.blobTimeout,
	}
}

// RepoRoot returns the top-level directory of the working tree containing
// RepoPath, falling back to RepoPath itself when git cannot tell.
func (e *Engine) RepoRoot(ctx context.Context) string {
	out, err := e.run(ctx, e.timeout, "rev-parse", "--show-toplevel")
	if err != nil {
		return e.repoPath
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return e.repoPath
	}
	return filepath.FromSlash(root)
}

// run executes git with the given arguments inside the repository and
// returns its stdout.
//
// The repository is passed with -C so the process working directory never
// changes, which matters because extraction runs many commands
// concurrently. Failures are wrapped in a CLIError with ExitGitError and
// carry git's stderr.
func (e *Engine) run(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fullArgs := append([]string{"--no-pager", "-C", e.repoPath}, args...)

	// #nosec G204 -- args are built internally; revisions and paths are
	// passed as single argv entries, never through a shell.
	cmd := exec.CommandContext(ctx, e.gitPath, fullArgs...)
	cmd.Env = gitEnv()
	cmd.Stdin = nil

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	command := "git " + strings.Join(args, " ")
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, model.WrapCLIError(model.ExitGitError,
			fmt.Sprintf("%s timed out after %s", command, timeout), ctx.Err())
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return nil, model.WrapCLIError(model.ExitGitError,
			fmt.Sprintf("git executable not found: %s", e.gitPath), err)
	}

	message := fmt.Sprintf("%s failed", command)
	if stderrStr := strings.TrimSpace(stderr.String()); stderrStr != "" {
		message = fmt.Sprintf("%s: %s", message, stderrStr)
	}
	return nil, model.WrapCLIError(model.ExitGitError, message, err)
}

// gitEnv returns the process environment with every interactive hook of
// git disabled.
func gitEnv() []string {
	overrides := map[string]string{
		"GIT_CONFIG_NOSYSTEM": "1",
		"GIT_TERMINAL_PROMPT": "0",
		"GIT_EDITOR":          ":",
		"EDITOR":              ":",
		"VISUAL":              ":",
		"GIT_MERGE_VERBOSITY": "0",
		"GIT_PAGER":           "cat",
		"PAGER":               "cat",
		"LESS":                "-FRX",
		"GIT_AUTHOR_NAME":     "git-diff-extract",
		"GIT_AUTHOR_EMAIL":    "git-diff-extract@localhost",
		"GIT_COMMITTER_NAME":  "git-diff-extract",
		"GIT_COMMITTER_EMAIL": "git-diff-extract@localhost",
	}

	env := make([]string, 0, len(os.Environ())+len(overrides))
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := overrides[key]; overridden {
			continue
		}
		env = append(env, kv)
	}
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}

// isMissingPath recognises the stderr messages git prints when a
// `<rev>:<path>` spec names a path that is absent at that revision.
func isMissingPath(err error) bool {
	msg := err.Error()
	for _, marker := range []string{
		"does not exist in",
		"exists on disk, but not in",
		"fatal: path",
		"invalid object name",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ResolveGitExecutable picks the git binary to use.
//
// Resolution order:
//  1. configured, when it names an existing file
//  2. a PortableGit distribution under baseDir (bin/, cmd/, then the root)
//  3. "git", resolved on PATH by the caller
func ResolveGitExecutable(configured, baseDir string) string {
	if configured != "" {
		if info, err := os.Stat(configured); err == nil && !info.IsDir() {
			return configured
		}
	}

	if baseDir != "" {
		name := "git"
		if runtime.GOOS == "windows" {
			name = "git.exe"
		}
		for _, candidate := range []string{
			filepath.Join(baseDir, "PortableGit", "bin", name),
			filepath.Join(baseDir, "PortableGit", "cmd", name),
			filepath.Join(baseDir, "PortableGit", name),
		} {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}

	return "git"
}
