// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package hostfs

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

type ownership struct {
	uid uint32
	gid uint32
}

type failureKey struct {
	op   Op
	path string
}

// Memory is an in-memory [FS] for tests. Entries created through the
// FS methods are owned by the identity set with SetIdentity (root by
// default), matching what a privileged process would produce.
//
// Memory is safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	fs       afero.Fs
	owners   map[string]ownership
	identity ownership
	failures map[failureKey]error
}

// NewMemory returns an empty in-memory filesystem. Only "/" exists,
// owned by root with mode 0755.
func NewMemory() *Memory {
	memory := &Memory{
		fs:       afero.NewMemMapFs(),
		owners:   map[string]ownership{"/": {}},
		failures: make(map[failureKey]error),
	}
	memory.fs.MkdirAll("/", 0o755)
	return memory
}

// SetIdentity sets the uid and gid that own entries created through
// the FS methods from now on.
func (m *Memory) SetIdentity(uid, gid uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identity = ownership{uid: uid, gid: gid}
}

// FailOn makes every subsequent op on path return err. Pass a nil err
// to clear the failure.
func (m *Memory) FailOn(op Op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := failureKey{op: op, path: filepath.Clean(path)}
	if err == nil {
		delete(m.failures, key)
		return
	}
	m.failures[key] = err
}

// AddDir creates a directory (and missing parents) with explicit
// ownership, bypassing failure injection. Parents created on the way
// are owned by root with mode 0755.
func (m *Memory) AddDir(path string, perm fs.FileMode, uid, gid uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.mkdirAllLocked(filepath.Dir(path), 0o755, ownership{}); err != nil {
		return err
	}
	if err := m.fs.MkdirAll(path, perm); err != nil {
		return err
	}
	if err := m.fs.Chmod(path, perm); err != nil {
		return err
	}
	m.owners[path] = ownership{uid: uid, gid: gid}
	return nil
}

// AddFile writes a regular file with explicit ownership and mode,
// bypassing failure injection. Missing parents are created as in
// AddDir.
func (m *Memory) AddFile(path string, data []byte, perm fs.FileMode, uid, gid uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.mkdirAllLocked(filepath.Dir(path), 0o755, ownership{}); err != nil {
		return err
	}
	if err := afero.WriteFile(m.fs, path, data, perm); err != nil {
		return err
	}
	if err := m.fs.Chmod(path, perm); err != nil {
		return err
	}
	m.owners[path] = ownership{uid: uid, gid: gid}
	return nil
}

func (m *Memory) Stat(path string) (FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.injected(OpStat, path); err != nil {
		return FileInfo{}, err
	}
	info, err := m.fs.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	owner := m.owners[path]
	return FileInfo{
		Path: path,
		Mode: info.Mode(),
		UID:  owner.uid,
		GID:  owner.gid,
		Size: info.Size(),
	}, nil
}

func (m *Memory) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.injected(OpRead, path); err != nil {
		return nil, err
	}
	return afero.ReadFile(m.fs, path)
}

func (m *Memory) MkdirAll(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.injected(OpMkdir, path); err != nil {
		return err
	}
	return m.mkdirAllLocked(path, perm, m.identity)
}

func (m *Memory) CreateFile(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.injected(OpCreate, path); err != nil {
		return err
	}
	if err := m.requireParent(path); err != nil {
		return err
	}
	_, statErr := m.fs.Stat(path)
	if err := createFile(m.fs, path, perm); err != nil {
		return err
	}
	if errors.Is(statErr, fs.ErrNotExist) {
		m.owners[path] = m.identity
	}
	return nil
}

func (m *Memory) WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.injected(OpWrite, path); err != nil {
		return err
	}
	if err := m.requireParent(path); err != nil {
		return err
	}
	if err := writeAtomic(m.fs, path, data, perm); err != nil {
		return err
	}
	m.owners[path] = m.identity
	return nil
}

func (m *Memory) Chown(path string, uid, gid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.injected(OpChown, path); err != nil {
		return err
	}
	if _, err := m.fs.Stat(path); err != nil {
		return err
	}
	owner := m.owners[path]
	// -1 leaves the id unchanged, as with chown(2).
	if uid >= 0 {
		owner.uid = uint32(uid)
	}
	if gid >= 0 {
		owner.gid = uint32(gid)
	}
	m.owners[path] = owner
	return nil
}

func (m *Memory) Chmod(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.injected(OpChmod, path); err != nil {
		return err
	}
	return m.fs.Chmod(path, perm)
}

func (m *Memory) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if err := m.injected(OpRemove, path); err != nil {
		return err
	}
	if err := m.fs.Remove(path); err != nil {
		return err
	}
	delete(m.owners, path)
	return nil
}

func (m *Memory) injected(op Op, path string) error {
	if err, ok := m.failures[failureKey{op: op, path: path}]; ok {
		return &fs.PathError{Op: string(op), Path: path, Err: err}
	}
	return nil
}

// requireParent mirrors open(2): creating a file under a missing
// directory fails with ENOENT instead of conjuring the directory.
func (m *Memory) requireParent(path string) error {
	parent := filepath.Dir(path)
	info, err := m.fs.Stat(parent)
	if err != nil {
		return &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	if !info.IsDir() {
		return &fs.PathError{Op: "open", Path: path, Err: errors.New("not a directory")}
	}
	return nil
}

// mkdirAllLocked creates path and its missing parents, recording owner
// for every directory it creates.
func (m *Memory) mkdirAllLocked(path string, perm fs.FileMode, owner ownership) error {
	var created []string
	for current := path; ; current = filepath.Dir(current) {
		if _, err := m.fs.Stat(current); err == nil {
			break
		}
		created = append(created, current)
		if current == "/" || current == "." {
			break
		}
	}
	if err := m.fs.MkdirAll(path, perm); err != nil {
		return err
	}
	for _, directory := range created {
		m.owners[directory] = owner
	}
	return nil
}
