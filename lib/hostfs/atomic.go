// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package hostfs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// writeAtomic writes data to a temporary file next to path, syncs it,
// applies perm, and renames it over path. The parent directory is
// synced afterwards so the rename survives a power loss.
func writeAtomic(fsys afero.Fs, path string, data []byte, perm fs.FileMode) error {
	directory := filepath.Dir(path)
	file, err := afero.TempFile(fsys, directory, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	temporaryPath := file.Name()

	// Write, sync, close. On any failure remove the temporary file and
	// report the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		fsys.Remove(temporaryPath)
		return fmt.Errorf("writing temporary file for %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		fsys.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary file for %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		fsys.Remove(temporaryPath)
		return fmt.Errorf("closing temporary file for %s: %w", path, err)
	}
	if err := fsys.Chmod(temporaryPath, perm); err != nil {
		fsys.Remove(temporaryPath)
		return fmt.Errorf("setting mode on temporary file for %s: %w", path, err)
	}
	if err := fsys.Rename(temporaryPath, path); err != nil {
		fsys.Remove(temporaryPath)
		return fmt.Errorf("renaming %s into place: %w", path, err)
	}

	parent, err := fsys.Open(directory)
	if err == nil {
		parent.Sync()
		parent.Close()
	}
	return nil
}

// createFile opens path with O_CREATE and without O_TRUNC, so existing
// content survives.
func createFile(fsys afero.Fs, path string, perm fs.FileMode) error {
	file, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE, perm)
	if err != nil {
		return err
	}
	return file.Close()
}
