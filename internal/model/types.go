// Package model defines the domain types for the git-diff-extract CLI.
//
// The types here describe what changed between two revisions (DiffEntry,
// SubmoduleChange) and what happened while extracting those changes to
// disk (ExtractStats, FailedFile).
package model

import (
	"fmt"
	"strings"
)

// Side identifies which revision a file's content is taken from.
// Extracted files are written under a directory named after the side.
type Side string

const (
	// SideOld holds content as of the older revision.
	SideOld Side = "old"

	// SideNew holds content as of the newer revision.
	SideNew Side = "new"
)

// String returns the directory name used for the side.
func (s Side) String() string {
	return string(s)
}

// DiffStatus is the single-letter change status reported by
// `git diff --name-status`.
type DiffStatus string

const (
	// StatusModified means the file content changed.
	StatusModified DiffStatus = "M"

	// StatusAdded means the file exists only in the new revision.
	StatusAdded DiffStatus = "A"

	// StatusDeleted means the file exists only in the old revision.
	StatusDeleted DiffStatus = "D"

	// StatusTypeChanged means the file type changed (regular file, symlink,
	// submodule).
	StatusTypeChanged DiffStatus = "T"

	// StatusRenamed means the file moved; OldPath and NewPath differ and
	// Similarity holds the rename score.
	StatusRenamed DiffStatus = "R"

	// StatusCopied means the file was copied from OldPath to NewPath.
	StatusCopied DiffStatus = "C"

	// StatusUnmerged means the path is unmerged. It never has content to
	// extract between two commits but git may still report it.
	StatusUnmerged DiffStatus = "U"

	// StatusUnknown is git's "X" status, an internal error marker.
	StatusUnknown DiffStatus = "X"
)

// String returns the raw status letter.
func (s DiffStatus) String() string {
	return string(s)
}

// IsValid checks whether the status is one git can report.
func (s DiffStatus) IsValid() bool {
	switch s {
	case StatusModified, StatusAdded, StatusDeleted, StatusTypeChanged,
		StatusRenamed, StatusCopied, StatusUnmerged, StatusUnknown:
		return true
	default:
		return false
	}
}

// Sides reports which revisions have content worth extracting for an entry
// with this status.
//
//	M, T, R, C → old and new
//	A          → new only
//	D          → old only
//	U, X       → nothing
func (s DiffStatus) Sides() (withOld, withNew bool) {
	switch s {
	case StatusModified, StatusTypeChanged, StatusRenamed, StatusCopied:
		return true, true
	case StatusAdded:
		return false, true
	case StatusDeleted:
		return true, false
	default:
		return false, false
	}
}

// Description returns a human-readable label for the status. Renames and
// copies include the similarity percentage.
func (s DiffStatus) Description(similarity int) string {
	switch s {
	case StatusModified:
		return "modified"
	case StatusAdded:
		return "added"
	case StatusDeleted:
		return "deleted"
	case StatusTypeChanged:
		return "type changed"
	case StatusRenamed:
		return fmt.Sprintf("renamed (%d%%)", similarity)
	case StatusCopied:
		return fmt.Sprintf("copied (%d%%)", similarity)
	case StatusUnmerged:
		return "unmerged"
	default:
		return string(s)
	}
}

// ParseDiffStatus converts the first letter of a name-status token into a
// DiffStatus. The remainder of the token (a similarity score for R/C) is
// ignored here.
func ParseDiffStatus(token string) (DiffStatus, error) {
	if token == "" {
		return "", fmt.Errorf("empty diff status")
	}
	status := DiffStatus(strings.ToUpper(token[:1]))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid diff status: %q (valid: M, A, D, T, R, C, U, X)", token)
	}
	return status, nil
}

// DiffEntry is one changed path between two revisions.
type DiffEntry struct {
	// Status is the change kind.
	Status DiffStatus `json:"status"`

	// OldPath is the repository-relative path in the old revision.
	// For non-rename entries it equals NewPath.
	OldPath string `json:"oldPath"`

	// NewPath is the repository-relative path in the new revision.
	NewPath string `json:"newPath"`

	// Similarity is the rename/copy score (0-100). Zero for other statuses.
	Similarity int `json:"similarity,omitempty"`
}

// Path returns the path most useful for display: the new path, or the old
// one when the new path is empty.
func (e DiffEntry) Path() string {
	if e.NewPath != "" {
		return e.NewPath
	}
	return e.OldPath
}

// Sides reports which revisions should be extracted for this entry.
func (e DiffEntry) Sides() (withOld, withNew bool) {
	return e.Status.Sides()
}

// IsRename reports whether the entry moved between two different paths.
func (e DiffEntry) IsRename() bool {
	return (e.Status == StatusRenamed || e.Status == StatusCopied) && e.OldPath != e.NewPath
}

// SubmoduleChange describes a gitlink whose recorded commit differs between
// the two revisions.
type SubmoduleChange struct {
	// Path is the submodule path relative to the parent repository root.
	Path string `json:"path"`

	// OldCommit is the submodule commit recorded in the old revision.
	// Empty if the submodule did not exist there.
	OldCommit string `json:"oldCommit,omitempty"`

	// NewCommit is the submodule commit recorded in the new revision.
	// Empty if the submodule was removed.
	NewCommit string `json:"newCommit,omitempty"`
}

// Added reports whether the submodule only exists in the new revision.
func (c SubmoduleChange) Added() bool {
	return c.OldCommit == "" && c.NewCommit != ""
}

// Removed reports whether the submodule only exists in the old revision.
func (c SubmoduleChange) Removed() bool {
	return c.OldCommit != "" && c.NewCommit == ""
}

// FailedFile records a path that could not be extracted.
type FailedFile struct {
	// Path is the repository-relative path (submodule files include the
	// submodule prefix).
	Path string `json:"path"`

	// Reason is the error message.
	Reason string `json:"reason"`
}

// ExtractStats summarises an extraction run.
type ExtractStats struct {
	// Entries is the number of diff entries processed, submodule files included.
	Entries int `json:"entries"`

	// Copied is the number of files written (each side counts once).
	Copied int `json:"copied"`

	// Skipped is the number of entries with nothing to extract (U/X status).
	Skipped int `json:"skipped"`

	// Bytes is the total size of the written files.
	Bytes int64 `json:"bytes"`

	// Failed lists the paths that could not be extracted.
	Failed []FailedFile `json:"failed,omitempty"`
}

// HasFailures reports whether any file failed to extract.
func (s ExtractStats) HasFailures() bool {
	return len(s.Failed) > 0
}
