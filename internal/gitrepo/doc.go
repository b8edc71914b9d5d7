// Package gitrepo provides read-only Git repository queries for the
// git-diff-extract CLI.
//
// All Git operations are performed via os/exec calls to the git binary,
// rather than using a Git library like go-git. This approach:
//   - Avoids CGO dependencies (libgit2)
//   - Uses the exact same Git behavior the user sees in their terminal
//   - Works with a portable Git distribution shipped next to the binary
//
// The Engine struct provides methods for validating repositories and
// revisions, listing changed paths, reading blob contents, and discovering
// submodule changes between two revisions.
package gitrepo
