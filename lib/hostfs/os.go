// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package hostfs

import (
	"io/fs"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// OS is the real host filesystem.
type OS struct {
	fs afero.Fs
}

// NewOS returns an [FS] backed by the operating system.
func NewOS() *OS {
	return &OS{fs: afero.NewOsFs()}
}

// Stat reads mode and ownership with a single stat(2) call.
func (o *OS) Stat(path string) (FileInfo, error) {
	var status unix.Stat_t
	if err := unix.Stat(path, &status); err != nil {
		return FileInfo{}, &fs.PathError{Op: "stat", Path: path, Err: err}
	}
	return FileInfo{
		Path: path,
		Mode: modeFromUnix(uint32(status.Mode)),
		UID:  status.Uid,
		GID:  status.Gid,
		Size: status.Size,
	}, nil
}

func (o *OS) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(o.fs, path)
}

func (o *OS) MkdirAll(path string, perm fs.FileMode) error {
	return o.fs.MkdirAll(path, perm)
}

func (o *OS) CreateFile(path string, perm fs.FileMode) error {
	return createFile(o.fs, path, perm)
}

func (o *OS) WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	return writeAtomic(o.fs, path, data, perm)
}

func (o *OS) Chown(path string, uid, gid int) error {
	return o.fs.Chown(path, uid, gid)
}

func (o *OS) Chmod(path string, perm fs.FileMode) error {
	return o.fs.Chmod(path, perm)
}

func (o *OS) Remove(path string) error {
	return o.fs.Remove(path)
}

// modeFromUnix converts a raw st_mode into an fs.FileMode.
func modeFromUnix(raw uint32) fs.FileMode {
	mode := fs.FileMode(raw & 0o777)
	switch raw & unix.S_IFMT {
	case unix.S_IFDIR:
		mode |= fs.ModeDir
	case unix.S_IFLNK:
		mode |= fs.ModeSymlink
	case unix.S_IFIFO:
		mode |= fs.ModeNamedPipe
	case unix.S_IFSOCK:
		mode |= fs.ModeSocket
	case unix.S_IFCHR:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case unix.S_IFBLK:
		mode |= fs.ModeDevice
	}
	if raw&unix.S_ISUID != 0 {
		mode |= fs.ModeSetuid
	}
	if raw&unix.S_ISGID != 0 {
		mode |= fs.ModeSetgid
	}
	if raw&unix.S_ISVTX != 0 {
		mode |= fs.ModeSticky
	}
	return mode
}
