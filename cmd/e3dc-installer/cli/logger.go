// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates a structured logger for CLI command operations.
// When stderr is a terminal, uses slog.TextHandler for human-readable output.
// When stderr is piped or redirected (cron, provisioning scripts), uses
// slog.JSONHandler for machine-parseable output.
//
// Execute scopes the logger with the command path:
//
//	logger.With("command", "permissions/fix")
func NewCommandLogger() *slog.Logger {
	return slog.New(NewCommandHandler(slog.LevelInfo))
}

// NewCommandHandler returns the handler NewCommandLogger uses, for
// callers that combine it with another handler.
func NewCommandHandler(level slog.Level) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.NewTextHandler(os.Stderr, options)
	}
	return slog.NewJSONHandler(os.Stderr, options)
}
