package model

import (
	"errors"
	"fmt"
)

// ExitCode defines the CLI exit codes. Scripts and the launcher rely on
// these values to tell failure kinds apart.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred. A required
	// tool missing from PATH also exits with this code.
	ExitGeneralError ExitCode = 1

	// ExitInvalidInput indicates a required input was missing or malformed.
	ExitInvalidInput ExitCode = 2

	// ExitOutputError indicates the output directory could not be used.
	ExitOutputError ExitCode = 3

	// ExitPartialFailure indicates extraction finished but at least one
	// file could not be written.
	ExitPartialFailure ExitCode = 4

	// ExitGitError indicates a Git operation failed.
	ExitGitError ExitCode = 5

	// ExitUserCancelled indicates the user cancelled an interactive prompt.
	ExitUserCancelled ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ExitCodeOf maps an error to the exit code the process should return.
// nil maps to ExitSuccess. The outermost CLIError in the chain wins;
// anything else is a general error.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitGeneralError
}
