// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the installer's entrypoint error handling:
// the one place that writes to stderr before the structured logger
// exists, and the one place that calls os.Exit.
//
// Errors carrying an ExitCode() method (cli.ExitError) have already
// been reported by the command; Fatal exits with their code without
// printing again.
package process
