package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/shinji-kodama/git-diff-extract/internal/gitrepo"
	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

// ErrCancelled is returned by Run when the context is cancelled before all
// files were processed. The returned stats are still valid.
var ErrCancelled = errors.New("extraction cancelled")

// Plan is what an extraction would do, without writing anything.
type Plan struct {
	Entries    []model.DiffEntry       `json:"entries"`
	Submodules []model.SubmoduleChange `json:"submodules,omitempty"`
}

// Extractor copies changed files from a repository into a Layout.
type Extractor struct {
	engine  *gitrepo.Engine
	layout  Layout
	workers int
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers bounds the number of concurrent file copies.
func WithWorkers(n int) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.workers = n
		}
	}
}

// WithLogger sets the logger used for per-file progress.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Extractor) { x.logger = logger }
}

// NewExtractor creates an Extractor writing into layout.
func NewExtractor(engine *gitrepo.Engine, layout Layout, opts ...Option) *Extractor {
	x := &Extractor{
		engine:  engine,
		layout:  layout,
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// BuildPlan lists the changes between oldRev and newRev. Gitlink entries
// are reported as submodules only.
func BuildPlan(ctx context.Context, engine *gitrepo.Engine, oldRev, newRev string) (Plan, error) {
	entries, err := engine.DiffEntries(ctx, oldRev, newRev)
	if err != nil {
		return Plan{}, err
	}
	submodules, err := engine.SubmoduleChanges(ctx, oldRev, newRev)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Entries: withoutGitlinks(entries, submodules), Submodules: submodules}, nil
}

// Plan lists what Run would extract.
func (x *Extractor) Plan(ctx context.Context, oldRev, newRev string) (Plan, error) {
	return BuildPlan(ctx, x.engine, oldRev, newRev)
}

// withoutGitlinks drops the gitlink side of diff entries; its content is a
// commit in another repository, not a blob. An entry whose only sides are
// gitlinks is dropped. A type change between a blob and a gitlink keeps the
// blob side as a deletion or an addition.
func withoutGitlinks(entries []model.DiffEntry, submodules []model.SubmoduleChange) []model.DiffEntry {
	if len(submodules) == 0 {
		return entries
	}
	oldLinks := make(map[string]struct{}, len(submodules))
	newLinks := make(map[string]struct{}, len(submodules))
	for _, s := range submodules {
		if s.OldCommit != "" {
			oldLinks[s.Path] = struct{}{}
		}
		if s.NewCommit != "" {
			newLinks[s.Path] = struct{}{}
		}
	}

	kept := entries[:0:0]
	for _, e := range entries {
		_, oldIsLink := oldLinks[e.OldPath]
		_, newIsLink := newLinks[e.NewPath]
		if !oldIsLink && !newIsLink {
			kept = append(kept, e)
			continue
		}

		withOld, withNew := e.Sides()
		withOld = withOld && !oldIsLink
		withNew = withNew && !newIsLink
		switch {
		case withOld && !withNew:
			kept = append(kept, model.DiffEntry{Status: model.StatusDeleted, OldPath: e.OldPath, NewPath: e.OldPath})
		case withNew && !withOld:
			kept = append(kept, model.DiffEntry{Status: model.StatusAdded, OldPath: e.NewPath, NewPath: e.NewPath})
		}
	}
	return kept
}

// task is one diff entry to extract, bound to the repository it lives in.
type task struct {
	engine *gitrepo.Engine
	entry  model.DiffEntry
	oldRev string
	newRev string

	// prefix is the submodule path, empty for the top-level repository.
	prefix string
}

func (t task) outputPath(repoPath string) string {
	if t.prefix == "" {
		return repoPath
	}
	return path.Join(t.prefix, repoPath)
}

// Run extracts every change between oldRev and newRev.
//
// Listing failures of the top-level repository are returned as errors.
// Everything after that (missing blobs, unwritable files, uninitialized
// submodules) is recorded in the stats and processing continues.
func (x *Extractor) Run(ctx context.Context, oldRev, newRev string) (model.ExtractStats, error) {
	plan, err := BuildPlan(ctx, x.engine, oldRev, newRev)
	if err != nil {
		return model.ExtractStats{}, err
	}
	return x.RunPlan(ctx, plan, oldRev, newRev)
}

// RunPlan extracts a plan built earlier by BuildPlan for the same revisions.
func (x *Extractor) RunPlan(ctx context.Context, plan Plan, oldRev, newRev string) (model.ExtractStats, error) {
	x.logger.Info("Found changes", "files", len(plan.Entries), "submodules", len(plan.Submodules))

	stats := &collector{}
	tasks := make([]task, 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		tasks = append(tasks, task{engine: x.engine, entry: entry, oldRev: oldRev, newRev: newRev})
	}
	for _, sub := range plan.Submodules {
		tasks = append(tasks, x.submoduleTasks(ctx, sub, stats)...)
	}

	p := pool.New().WithMaxGoroutines(x.workers)
	for _, t := range tasks {
		p.Go(func() {
			x.extract(ctx, t, stats)
		})
	}
	p.Wait()

	result := stats.snapshot()
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return result, nil
}

// submoduleTasks lists the changes inside one submodule. A side missing
// from the parent (added or removed submodule) is diffed against the empty
// tree, so every file shows up as added or deleted. Nested submodules are
// not followed.
func (x *Extractor) submoduleTasks(ctx context.Context, sub model.SubmoduleChange, stats *collector) []task {
	logger := x.logger.With("submodule", sub.Path)
	logger.Info("Processing submodule", "old", gitrepo.ShortSHA(sub.OldCommit), "new", gitrepo.ShortSHA(sub.NewCommit))

	if !x.engine.IsSubmoduleInitialized(sub.Path) {
		stats.fail(sub.Path, "submodule is not initialized or its content was not fetched")
		logger.Warn("Submodule not initialized")
		return nil
	}

	subEngine := x.engine.Submodule(sub.Path)
	if !subEngine.ValidateRepository(ctx) {
		stats.fail(sub.Path, "submodule is not a valid git repository")
		logger.Warn("Submodule is not a valid git repository")
		return nil
	}

	oldRev, newRev := sub.OldCommit, sub.NewCommit
	if oldRev == "" {
		oldRev = gitrepo.EmptyTree
	}
	if newRev == "" {
		newRev = gitrepo.EmptyTree
	}

	entries, err := subEngine.DiffEntries(ctx, oldRev, newRev)
	if err != nil {
		stats.fail(sub.Path, err.Error())
		logger.Warn("Failed to list submodule changes", "error", err)
		return nil
	}
	nested, err := subEngine.SubmoduleChanges(ctx, oldRev, newRev)
	if err != nil {
		stats.fail(sub.Path, err.Error())
		logger.Warn("Failed to list nested submodules", "error", err)
		return nil
	}
	for _, n := range nested {
		logger.Debug("Not following nested submodule", "path", path.Join(sub.Path, n.Path))
	}
	entries = withoutGitlinks(entries, nested)
	logger.Info("Found submodule changes", "files", len(entries))

	tasks := make([]task, 0, len(entries))
	for _, entry := range entries {
		tasks = append(tasks, task{engine: subEngine, entry: entry, oldRev: oldRev, newRev: newRev, prefix: sub.Path})
	}
	return tasks
}

// extract writes the sides of one entry. The first failing side marks the
// entry as failed; the other side is still attempted.
func (x *Extractor) extract(ctx context.Context, t task, stats *collector) {
	stats.entry()
	display := t.outputPath(t.entry.Path())

	if err := ctx.Err(); err != nil {
		stats.fail(display, err.Error())
		return
	}

	withOld, withNew := t.entry.Sides()
	if !withOld && !withNew {
		stats.skip()
		x.logger.Debug("Skipping entry without content", "path", display, "status", t.entry.Status)
		return
	}

	if withOld {
		if err := x.copySide(ctx, t, model.SideOld, t.oldRev, t.entry.OldPath, stats); err != nil {
			stats.fail(t.outputPath(t.entry.OldPath), err.Error())
		}
	}
	if withNew {
		if err := x.copySide(ctx, t, model.SideNew, t.newRev, t.entry.NewPath, stats); err != nil {
			stats.fail(t.outputPath(t.entry.NewPath), err.Error())
		}
	}
}

func (x *Extractor) copySide(ctx context.Context, t task, side model.Side, rev, repoPath string, stats *collector) error {
	target, err := x.layout.Target(side, t.outputPath(repoPath))
	if err != nil {
		return err
	}

	content, err := t.engine.FileContent(ctx, rev, repoPath)
	if err != nil {
		if !errors.Is(err, gitrepo.ErrPathNotFound) {
			return err
		}
		// Keep the slot in the layout so both sides stay comparable.
		x.logger.Warn("Path missing at revision, writing empty file", "path", repoPath, "side", side)
		content = nil
	}

	if x.layout.Reused {
		backup, err := BackupFile(target)
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		if backup != "" {
			x.logger.Debug("Backed up existing file", "path", target, "backup", backup)
		}
	}

	if err := writeFile(target, content); err != nil {
		return err
	}
	stats.copied(int64(len(content)))
	x.logger.Debug("Extracted file",
		"side", side,
		"path", t.outputPath(repoPath),
		"size", FormatSize(int64(len(content))),
		"binary", IsBinary(content))
	return nil
}

// collector accumulates ExtractStats from concurrent workers.
type collector struct {
	mu    sync.Mutex
	stats model.ExtractStats
}

func (c *collector) entry() {
	c.mu.Lock()
	c.stats.Entries++
	c.mu.Unlock()
}

func (c *collector) copied(n int64) {
	c.mu.Lock()
	c.stats.Copied++
	c.stats.Bytes += n
	c.mu.Unlock()
}

func (c *collector) skip() {
	c.mu.Lock()
	c.stats.Skipped++
	c.mu.Unlock()
}

func (c *collector) fail(path, reason string) {
	c.mu.Lock()
	c.stats.Failed = append(c.stats.Failed, model.FailedFile{Path: path, Reason: reason})
	c.mu.Unlock()
}

// snapshot returns the stats with failures sorted by path.
func (c *collector) snapshot() model.ExtractStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.stats
	out.Failed = append([]model.FailedFile(nil), c.stats.Failed...)
	sort.SliceStable(out.Failed, func(i, j int) bool { return out.Failed[i].Path < out.Failed[j].Path })
	return out
}
