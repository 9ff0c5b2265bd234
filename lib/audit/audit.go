// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileName is the audit log's name inside the installation's logs
// directory.
const FileName = "permissions.log"

// Trail is an open audit log.
type Trail struct {
	file    *os.File
	handler slog.Handler
}

// Open appends to the audit log at path, creating it and its directory
// as needed. attrs are attached to every record, typically the
// installer version and the invoking user.
func Open(path string, attrs ...slog.Attr) (*Trail, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o775); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o664)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &Trail{file: file, handler: handler.WithAttrs(attrs)}, nil
}

// Handler returns the trail's slog handler.
func (t *Trail) Handler() slog.Handler { return t.handler }

// Path is the audit log's location.
func (t *Trail) Path() string { return t.file.Name() }

// Close syncs and closes the log. Records written after Close are
// dropped with an error from the handler.
func (t *Trail) Close() error {
	syncErr := t.file.Sync()
	closeErr := t.file.Close()
	if syncErr != nil {
		return fmt.Errorf("syncing audit log: %w", syncErr)
	}
	return closeErr
}

// fanout delivers every record to each handler that accepts its level.
type fanout []slog.Handler

// Fanout returns a handler that writes to all of handlers. Nil
// handlers are skipped.
func Fanout(handlers ...slog.Handler) slog.Handler {
	var live fanout
	for _, handler := range handlers {
		if handler != nil {
			live = append(live, handler)
		}
	}
	return live
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range f {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, handler := range f {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		// Handlers may retain the record; each gets its own copy.
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := make(fanout, len(f))
	for index, handler := range f {
		derived[index] = handler.WithAttrs(attrs)
	}
	return derived
}

func (f fanout) WithGroup(name string) slog.Handler {
	derived := make(fanout, len(f))
	for index, handler := range f {
		derived[index] = handler.WithGroup(name)
	}
	return derived
}
