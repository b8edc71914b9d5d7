// Package model defines the domain types and value objects for the
// git-diff-extract CLI.
//
// This package contains pure data structures with no external dependencies.
// Diff entries and submodule changes are transient representations parsed
// from git output at runtime; the only persistent state is the settings
// file owned by the config package.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
