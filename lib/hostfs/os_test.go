// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package hostfs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSStatOwnership(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "file")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatal(err)
	}

	host := NewOS()
	info, err := host.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.UID != uint32(os.Getuid()) {
		t.Errorf("uid = %d, want %d", info.UID, os.Getuid())
	}
	if info.Perm() != 0o600 {
		t.Errorf("perm = %o, want 600", info.Perm())
	}
	if info.Size != 5 {
		t.Errorf("size = %d, want 5", info.Size)
	}

	directoryInfo, err := host.Stat(directory)
	if err != nil {
		t.Fatal(err)
	}
	if !directoryInfo.IsDir() {
		t.Error("temp dir not reported as directory")
	}
}

func TestOSStatMissing(t *testing.T) {
	_, err := NewOS().Stat(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Stat error = %v, want fs.ErrNotExist", err)
	}
}

func TestOSCreateFileKeepsContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	if err := os.WriteFile(path, []byte("wallbox = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewOS().CreateFile(path, 0o600); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "wallbox = true\n" {
		t.Errorf("content = %q, want unchanged", data)
	}
}

func TestOSWriteFileAtomic(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "e3dc_paths.json")
	host := NewOS()

	for _, content := range []string{"first\n", "second\n"} {
		if err := host.WriteFileAtomic(path, []byte(content), 0o640); err != nil {
			t.Fatalf("WriteFileAtomic(%q): %v", content, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != content {
			t.Errorf("content = %q, want %q", data, content)
		}
	}

	info, err := host.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Perm() != 0o640 {
		t.Errorf("perm = %o, want 640", info.Perm())
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the target (temporary file leaked)", len(entries))
	}
}

func TestModeFromUnix(t *testing.T) {
	tests := []struct {
		name string
		raw  uint32
		want fs.FileMode
	}{
		{"regular", 0o100644, 0o644},
		{"directory", 0o040755, fs.ModeDir | 0o755},
		{"sticky tmp", 0o041777, fs.ModeDir | fs.ModeSticky | 0o777},
		{"setuid binary", 0o104755, fs.ModeSetuid | 0o755},
		{"symlink", 0o120777, fs.ModeSymlink | 0o777},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := modeFromUnix(test.raw); got != test.want {
				t.Errorf("modeFromUnix(%o) = %v, want %v", test.raw, got, test.want)
			}
		})
	}
}
