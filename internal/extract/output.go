package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

// ConflictPolicy decides what happens when the output folder already exists.
type ConflictPolicy string

const (
	// ConflictAsk defers to a ConflictPrompter.
	ConflictAsk ConflictPolicy = "ask"

	// ConflictOverwrite deletes the existing folder and starts fresh.
	ConflictOverwrite ConflictPolicy = "overwrite"

	// ConflictKeep reuses the folder. Files that would be overwritten are
	// backed up first.
	ConflictKeep ConflictPolicy = "keep"

	// ConflictFail aborts with ExitOutputError.
	ConflictFail ConflictPolicy = "fail"
)

// String returns the policy name.
func (p ConflictPolicy) String() string {
	return string(p)
}

// IsValid checks whether the policy is one of the known values.
func (p ConflictPolicy) IsValid() bool {
	switch p {
	case ConflictAsk, ConflictOverwrite, ConflictKeep, ConflictFail:
		return true
	default:
		return false
	}
}

// ParseConflictPolicy converts a string to a ConflictPolicy. An empty
// string selects ConflictAsk.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	if s == "" {
		return ConflictAsk, nil
	}
	p := ConflictPolicy(strings.ToLower(s))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid conflict policy: %q (valid: ask, overwrite, keep, fail)", s)
	}
	return p, nil
}

// Resolution is a user's answer to an existing output folder.
type Resolution int

const (
	ResolveCancel Resolution = iota
	ResolveOverwrite
	ResolveKeep
)

// ConflictPrompter asks the user how to handle an existing output folder.
type ConflictPrompter interface {
	ResolveConflict(path string) (Resolution, error)
}

// Layout is a prepared output folder.
type Layout struct {
	// Root is <output>/<folder>.
	Root string

	// Reused is true when Root already existed and was kept. Existing files
	// are backed up before being overwritten.
	Reused bool
}

// Dir returns the directory for side.
func (l Layout) Dir(side model.Side) string {
	return filepath.Join(l.Root, side.String())
}

// OldDir returns the directory holding old-revision content.
func (l Layout) OldDir() string {
	return l.Dir(model.SideOld)
}

// NewDir returns the directory holding new-revision content.
func (l Layout) NewDir() string {
	return l.Dir(model.SideNew)
}

// Target maps a repository-relative path (slash-separated, as git prints
// it) to its location under side. Paths that would land outside the side
// directory are rejected.
func (l Layout) Target(side model.Side, repoPath string) (string, error) {
	rel := filepath.FromSlash(repoPath)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("refusing to write outside the output folder: %q", repoPath)
	}
	return filepath.Join(l.Dir(side), rel), nil
}

// ValidateOutputPath checks that outputPath is an existing, writable
// directory and that folderName is a single path element.
func ValidateOutputPath(outputPath, folderName string) error {
	if strings.TrimSpace(outputPath) == "" {
		return model.NewCLIError(model.ExitInvalidInput, "output path must not be empty")
	}
	if strings.TrimSpace(folderName) == "" {
		return model.NewCLIError(model.ExitInvalidInput, "output folder name must not be empty")
	}
	if folderName != filepath.Base(folderName) || !filepath.IsLocal(folderName) || strings.ContainsAny(folderName, `/\`) {
		return model.NewCLIError(model.ExitInvalidInput,
			fmt.Sprintf("output folder name must be a single directory name: %q", folderName))
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.WrapCLIError(model.ExitOutputError, fmt.Sprintf("output path does not exist: %s", outputPath), err)
		}
		return model.WrapCLIError(model.ExitOutputError, fmt.Sprintf("cannot access output path: %s", outputPath), err)
	}
	if !info.IsDir() {
		return model.NewCLIError(model.ExitOutputError, fmt.Sprintf("output path is not a directory: %s", outputPath))
	}

	probe, err := os.CreateTemp(outputPath, ".write_test*")
	if err != nil {
		return model.WrapCLIError(model.ExitOutputError, fmt.Sprintf("output path is not writable: %s", outputPath), err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	return nil
}

// PrepareOutput creates <outputPath>/<folderName>/{old,new}, applying
// policy when the folder already exists. prompter is only consulted for
// ConflictAsk and may be nil otherwise.
func PrepareOutput(outputPath, folderName string, policy ConflictPolicy, prompter ConflictPrompter) (Layout, error) {
	absOutput, err := filepath.Abs(outputPath)
	if err != nil {
		return Layout{}, model.WrapCLIError(model.ExitOutputError, "failed to resolve output path", err)
	}
	layout := Layout{Root: filepath.Join(absOutput, folderName)}

	if _, err := os.Stat(layout.Root); err == nil {
		resolution, err := resolveConflict(layout.Root, policy, prompter)
		if err != nil {
			return Layout{}, err
		}
		switch resolution {
		case ResolveCancel:
			return Layout{}, model.NewCLIError(model.ExitUserCancelled, "operation cancelled by user")
		case ResolveOverwrite:
			if err := os.RemoveAll(layout.Root); err != nil {
				return Layout{}, model.WrapCLIError(model.ExitOutputError,
					fmt.Sprintf("failed to remove existing output folder %s", layout.Root), err)
			}
		case ResolveKeep:
			layout.Reused = true
		}
	}

	for _, dir := range []string{layout.OldDir(), layout.NewDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Layout{}, model.WrapCLIError(model.ExitOutputError,
				fmt.Sprintf("failed to create output directory %s", dir), err)
		}
	}
	return layout, nil
}

func resolveConflict(root string, policy ConflictPolicy, prompter ConflictPrompter) (Resolution, error) {
	switch policy {
	case ConflictOverwrite:
		return ResolveOverwrite, nil
	case ConflictKeep:
		return ResolveKeep, nil
	case ConflictFail:
		return ResolveCancel, model.NewCLIError(model.ExitOutputError,
			fmt.Sprintf("output folder already exists: %s", root))
	}

	if prompter == nil {
		return ResolveCancel, model.NewCLIError(model.ExitOutputError,
			fmt.Sprintf("output folder already exists: %s (use --on-exists to choose)", root))
	}
	resolution, err := prompter.ResolveConflict(root)
	if err != nil {
		return ResolveCancel, model.WrapCLIError(model.ExitGeneralError, "failed to read user input", err)
	}
	return resolution, nil
}
