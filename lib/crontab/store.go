// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package crontab

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/e3dc-control/installer/lib/command"
	"github.com/e3dc-control/installer/lib/hostfs"
	"github.com/e3dc-control/installer/lib/principal"
)

// DefaultSpoolDirectory is the Debian location of per-user crontabs.
const DefaultSpoolDirectory = "/var/spool/cron/crontabs"

// spoolGroupName owns spool files on Debian so crontab(1), which is
// setgid crontab, can read them.
const spoolGroupName = "crontab"

// Store reads and replaces whole per-principal crontab lists.
type Store interface {
	// Read returns the principal's list. A principal without a crontab
	// has an empty list, not an error.
	Read(ctx context.Context, principal string) (Table, error)

	// Write replaces the principal's list with table.
	Write(ctx context.Context, principal string, table Table) error
}

// CommandStore manages lists through crontab(1).
type CommandStore struct {
	Runner command.Runner

	// Binary is the crontab executable. Empty means "crontab" from
	// PATH.
	Binary string
}

func (s *CommandStore) binary() string {
	if s.Binary == "" {
		return "crontab"
	}
	return s.Binary
}

func (s *CommandStore) Read(ctx context.Context, name string) (Table, error) {
	if err := ValidatePrincipal(name); err != nil {
		return Table{}, err
	}
	result, err := s.Runner.Run(ctx, command.Request{
		Name: s.binary(),
		Args: []string{"-l", "-u", name},
	})
	if err != nil {
		if result.ExitCode == 1 && strings.Contains(strings.ToLower(string(result.Stderr)), "no crontab for") {
			return Table{}, nil
		}
		return Table{}, fmt.Errorf("reading crontab of %s: %w", name, err)
	}
	return Parse(string(result.Stdout)), nil
}

func (s *CommandStore) Write(ctx context.Context, name string, table Table) error {
	if err := ValidatePrincipal(name); err != nil {
		return err
	}
	// "crontab -u NAME -" installs stdin through its own temporary
	// file and rename.
	_, err := s.Runner.Run(ctx, command.Request{
		Name:  s.binary(),
		Args:  []string{"-u", name, "-"},
		Stdin: []byte(table.String()),
	})
	if err != nil {
		return fmt.Errorf("installing crontab of %s: %w", name, err)
	}
	return nil
}

// SpoolStore manages lists by rewriting spool files directly.
type SpoolStore struct {
	FS         hostfs.FS
	Principals principal.Resolver

	// Directory holds one file per principal. Empty means
	// DefaultSpoolDirectory.
	Directory string
}

func (s *SpoolStore) path(name string) string {
	directory := s.Directory
	if directory == "" {
		directory = DefaultSpoolDirectory
	}
	return filepath.Join(directory, name)
}

func (s *SpoolStore) Read(_ context.Context, name string) (Table, error) {
	if err := ValidatePrincipal(name); err != nil {
		return Table{}, err
	}
	data, err := s.FS.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("reading crontab of %s: %w", name, err)
	}
	return Parse(string(data)), nil
}

func (s *SpoolStore) Write(_ context.Context, name string, table Table) error {
	if err := ValidatePrincipal(name); err != nil {
		return err
	}
	account, err := s.Principals.LookupUser(name)
	if err != nil {
		return fmt.Errorf("resolving crontab owner: %w", err)
	}
	gid := account.GID
	if spoolGID, err := s.Principals.LookupGroup(spoolGroupName); err == nil {
		gid = spoolGID
	}

	path := s.path(name)
	if err := s.FS.WriteFileAtomic(path, []byte(table.String()), 0o600); err != nil {
		return fmt.Errorf("writing crontab of %s: %w", name, err)
	}
	if err := s.FS.Chown(path, int(account.UID), int(gid)); err != nil {
		return fmt.Errorf("setting owner of crontab of %s: %w", name, err)
	}
	return nil
}
