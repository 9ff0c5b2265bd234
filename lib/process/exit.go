// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	os.Exit(Report(os.Stderr, err))
}

// Report writes err to w in Fatal's format and returns the exit code
// Fatal would use. A nil err writes nothing and returns 0.
func Report(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		// The command already told the operator what went wrong.
		if code := coded.ExitCode(); code > 0 {
			return code
		}
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}
