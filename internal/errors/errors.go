// Package errors provides structured error types for ladder operations.
package errors

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// KindIO represents filesystem errors outside a more specific phase.
	KindIO ErrorKind = iota
	// KindCommand represents external command execution errors.
	KindCommand
	// KindConfig represents configuration validation errors.
	KindConfig
	// KindClassification represents an unreadable or unprobeable source.
	KindClassification
	// KindEncode represents an engine failure or missing output after fallback.
	KindEncode
	// KindManifest represents an I/O error while writing a manifest.
	KindManifest
	// KindValidation represents a failed package check.
	KindValidation
	// KindSideEffect represents thumbnail, trailer, archive, publish or deletion errors.
	KindSideEffect
	// KindNoFolders represents an input directory without source folders.
	KindNoFolders
	// KindCancelled represents a stop request.
	KindCancelled
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindCommand:
		return "Command error"
	case KindConfig:
		return "Configuration error"
	case KindClassification:
		return "Classification failure"
	case KindEncode:
		return "Encode failure"
	case KindManifest:
		return "Manifest failure"
	case KindValidation:
		return "Validation failure"
	case KindSideEffect:
		return "Side effect failure"
	case KindNoFolders:
		return "No source folders"
	case KindCancelled:
		return "Operation cancelled"
	default:
		return "Unknown error"
	}
}

// Fatal reports whether an error of this kind ends the job it occurred in.
// Encode failures are fatal only when the pipeline decides so.
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindSideEffect, KindEncode:
		return false
	default:
		return true
	}
}

// CommandErrorKind represents the type of command error.
type CommandErrorKind int

const (
	// CommandStart means the command failed to start.
	CommandStart CommandErrorKind = iota
	// CommandFailed means the command returned non-zero exit status.
	CommandFailed
	// CommandTimeout means the command was killed after its deadline.
	CommandTimeout
)

// CommandError represents an error from executing an external command.
type CommandError struct {
	Command    string
	Kind       CommandErrorKind
	ExitCode   int
	Stderr     string
	Underlying error
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case CommandStart:
		return fmt.Sprintf("failed to execute %s: %v", e.Command, e.Underlying)
	case CommandTimeout:
		return fmt.Sprintf("command %s timed out", e.Command)
	case CommandFailed:
		if e.Stderr != "" {
			return fmt.Sprintf("command %s failed with exit code %d: %s", e.Command, e.ExitCode, e.Stderr)
		}
		return fmt.Sprintf("command %s failed with exit code %d", e.Command, e.ExitCode)
	default:
		return fmt.Sprintf("command %s error: %v", e.Command, e.Underlying)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Underlying
}

// CoreError is the main error type for ladder operations.
type CoreError struct {
	Kind       ErrorKind
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target matches this error's kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewIOError creates a new I/O error.
func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

// NewCommandStartError creates an error for when a command fails to start.
func NewCommandStartError(cmd string, err error) *CoreError {
	cmdErr := &CommandError{Command: cmd, Kind: CommandStart, Underlying: err}
	return &CoreError{Kind: KindCommand, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewCommandFailedError creates an error for when a command returns non-zero exit status.
func NewCommandFailedError(cmd string, exitCode int, stderr string) *CoreError {
	cmdErr := &CommandError{
		Command:  cmd,
		Kind:     CommandFailed,
		ExitCode: exitCode,
		Stderr:   stderr,
	}
	return &CoreError{Kind: KindCommand, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewCommandTimeoutError creates an error for a command killed by its deadline.
func NewCommandTimeoutError(cmd string, err error) *CoreError {
	cmdErr := &CommandError{Command: cmd, Kind: CommandTimeout, ExitCode: -1, Underlying: err}
	return &CoreError{Kind: KindCommand, Message: cmdErr.Error(), Underlying: cmdErr}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *CoreError {
	return &CoreError{Kind: KindConfig, Message: message}
}

// NewClassificationError creates an error for a source that cannot be probed or classified.
func NewClassificationError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindClassification, Message: message, Underlying: underlying}
}

// NewEncodeError creates an error for a failed rendition or audio track.
func NewEncodeError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindEncode, Message: message, Underlying: underlying}
}

// NewManifestError creates an error for a manifest that could not be written.
func NewManifestError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindManifest, Message: message, Underlying: underlying}
}

// NewValidationError creates an error for a package that failed a check.
func NewValidationError(message string) *CoreError {
	return &CoreError{Kind: KindValidation, Message: message}
}

// NewSideEffectError creates an error for a best-effort step.
func NewSideEffectError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindSideEffect, Message: message, Underlying: underlying}
}

// NewNoFoldersError creates an error for when the input directory holds no source folders.
func NewNoFoldersError(dir string) *CoreError {
	return &CoreError{Kind: KindNoFolders, Message: fmt.Sprintf("no source folders found in %s", dir)}
}

// NewCancelledError creates an error for stop-requested operations.
func NewCancelledError() *CoreError {
	return &CoreError{Kind: KindCancelled, Message: "stop requested"}
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind == kind
	}
	return false
}

// KindOf returns the kind of the outermost CoreError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind, true
	}
	return 0, false
}

// IsCancelled checks if the error is a cancellation error.
func IsCancelled(err error) bool {
	return IsKind(err, KindCancelled)
}

// IsNoFolders checks if the error is a no-folders error.
func IsNoFolders(err error) bool {
	return IsKind(err, KindNoFolders)
}

// WrapExecError wraps an exec.ExitError into a CoreError.
func WrapExecError(cmd string, err error, stderr string) *CoreError {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return NewCommandFailedError(cmd, exitErr.ExitCode(), stderr)
	}
	return NewCommandStartError(cmd, err)
}
