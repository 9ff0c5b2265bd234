// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package hostfs

import (
	"io/fs"
)

// FileInfo is the subset of stat(2) the reconciler compares against
// a resource definition.
type FileInfo struct {
	Path string

	// Mode carries the type bits (fs.ModeDir) and the permission bits,
	// including setuid, setgid, and sticky.
	Mode fs.FileMode

	UID  uint32
	GID  uint32
	Size int64
}

// IsDir reports whether the entry is a directory.
func (i FileInfo) IsDir() bool { return i.Mode.IsDir() }

// Perm returns the nine rwx permission bits.
func (i FileInfo) Perm() fs.FileMode { return i.Mode.Perm() }

// FS is a host filesystem with ownership. Paths are absolute. Errors
// for absent paths wrap fs.ErrNotExist.
type FS interface {
	// Stat follows symlinks, matching what chown and chmod act on.
	Stat(path string) (FileInfo, error)

	ReadFile(path string) ([]byte, error)

	// MkdirAll creates path and any missing parents with perm
	// (subject to the process umask on a real host).
	MkdirAll(path string, perm fs.FileMode) error

	// CreateFile creates an empty regular file when path is absent.
	// An existing file is left untouched: never truncated, never
	// rewritten.
	CreateFile(path string, perm fs.FileMode) error

	// WriteFileAtomic replaces path with data through a temporary file
	// in the same directory, fsync, and rename. Readers observe either
	// the previous content or the new content, never a partial write.
	// The replacement is a new inode owned by the calling process.
	WriteFileAtomic(path string, data []byte, perm fs.FileMode) error

	Chown(path string, uid, gid int) error
	Chmod(path string, perm fs.FileMode) error
	Remove(path string) error
}

// Op names a filesystem operation for failure injection in [Memory].
type Op string

const (
	OpStat   Op = "stat"
	OpRead   Op = "read"
	OpMkdir  Op = "mkdir"
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpChown  Op = "chown"
	OpChmod  Op = "chmod"
	OpRemove Op = "remove"
)
