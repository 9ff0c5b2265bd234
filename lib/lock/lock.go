// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package lock

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"
)

// ErrLocked is returned by Acquire when another process holds the
// lock.
var ErrLocked = errors.New("another reconciliation is running for this installation")

// Lock is a held reconciliation lock.
type Lock struct {
	file *os.File
	path string
}

// FileName returns the lock file name for an installation root. The
// root is cleaned first, so "/home/pi/E3DC-Control/" and
// "/home/pi/E3DC-Control" share a lock.
func FileName(installRoot string) string {
	sum := blake3.Sum256([]byte(filepath.Clean(installRoot)))
	return "reconcile-" + hex.EncodeToString(sum[:16]) + ".lock"
}

// Acquire takes the lock for installRoot in directory without
// blocking. The directory is created when missing.
func Acquire(directory, installRoot string) (*Lock, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	path := filepath.Join(directory, FileName(installRoot))

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|unix.O_CLOEXEC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	// Diagnostic only: lets an operator see who holds the lock.
	if err := file.Truncate(0); err == nil {
		fmt.Fprintf(file, "%d\n", os.Getpid())
	}
	return &Lock{file: file, path: path}, nil
}

// Path is the lock file's location.
func (l *Lock) Path() string { return l.path }

// Release drops the lock. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	file := l.file
	l.file = nil
	unlockErr := unix.Flock(int(file.Fd()), unix.LOCK_UN)
	closeErr := file.Close()
	if unlockErr != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, unlockErr)
	}
	return closeErr
}
