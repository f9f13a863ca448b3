// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without printing an extra
// error message. The command has already written its own output.
//
// "imageres lookup" uses it for a resource that is absent: exit 1 is
// a valid answer there, not a failure.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// ValidationError is a usage mistake: bad flags, missing arguments,
// unknown commands. main prints it without a stack of wrapping and
// exits 2.
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string { return e.message }

// ExitCode returns 2, the conventional usage-error status.
func (e *ValidationError) ExitCode() int { return 2 }

// Validation formats a ValidationError.
func Validation(format string, args ...any) error {
	return &ValidationError{message: fmt.Sprintf(format, args...)}
}
