package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCompilerUnavailable marks configuration failures: the compiler
	// executable is missing or cannot be run. These are never turned into a
	// fallback artifact.
	ErrCompilerUnavailable = errors.New("compiler unavailable")

	// ErrUnsupportedExtension is returned when no compiler handles a file.
	ErrUnsupportedExtension = errors.New("unsupported extension")

	// ErrSourceNotFound is returned when the requested source does not exist.
	ErrSourceNotFound = errors.New("source not found")
)

// ExecutableError reports a compiler executable that cannot be used.
type ExecutableError struct {
	Path   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *ExecutableError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "compiler executable %q", e.Path)

	if e.Reason != "" {
		fmt.Fprintf(&b, " %s", e.Reason)
	}

	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	return b.String()
}

// Is reports ErrCompilerUnavailable as a match.
func (e *ExecutableError) Is(target error) bool {
	return target == ErrCompilerUnavailable
}

// Unwrap returns the underlying cause.
func (e *ExecutableError) Unwrap() error {
	return e.Err
}

// CompileError reports a compiler run that finished unsuccessfully.
type CompileError struct {
	Description string // what was attempted, including the command line
	Stderr      string // the process's captured error stream
	ExitCode    int    // -1 when the process was killed
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Stderr == "" {
		return e.Description
	}

	return e.Description + ": " + strings.TrimSpace(e.Stderr)
}

// Report returns the description followed by the captured stderr, the
// text embedded in fallback artifacts.
func (e *CompileError) Report() string {
	if strings.TrimSpace(e.Stderr) == "" {
		return e.Description
	}

	return e.Description + "\n\n" + e.Stderr
}
