// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without printing an extra
// error message. The command is expected to have already written its
// own output; for example "permissions check" prints the issues it
// found and returns ExitError{Code: 1}.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. process.Fatal checks for this
// interface to distinguish "handled non-zero exit" from "unexpected
// error to display".
func (e *ExitError) ExitCode() int {
	return e.Code
}
