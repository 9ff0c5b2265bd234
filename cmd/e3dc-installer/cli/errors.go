// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ErrorCategory classifies command errors so scripts driving the
// installer can tell bad input from a host problem.
type ErrorCategory string

const (
	// CategoryValidation: bad flags or arguments. Fix the invocation.
	CategoryValidation ErrorCategory = "validation"

	// CategoryForbidden: the operation needs privileges the process
	// lacks. Re-run with sudo.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict: another installer holds the installation
	// lock. Retry after it finishes.
	CategoryConflict ErrorCategory = "conflict"
)

// CommandError is a categorized error returned by commands. It wraps
// the underlying error, so errors.Is and errors.As see through it.
type CommandError struct {
	Category ErrorCategory
	Err      error
}

func (e *CommandError) Error() string { return e.Err.Error() }

func (e *CommandError) Unwrap() error { return e.Err }

// Validation creates a validation error.
func Validation(format string, args ...any) *CommandError {
	return &CommandError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// Forbidden creates a forbidden error.
func Forbidden(format string, args ...any) *CommandError {
	return &CommandError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...any) *CommandError {
	return &CommandError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}
