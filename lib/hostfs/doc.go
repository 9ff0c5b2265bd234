// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostfs is the filesystem surface the permission reconciler
// acts on: stat with ownership, directory and empty-file creation,
// chown, chmod, and atomic whole-file replacement.
//
// Two implementations share the [FS] interface. [NewOS] operates on the
// real host through afero's OS filesystem, reading ownership with
// stat(2) from golang.org/x/sys/unix. [NewMemory] keeps everything in an
// afero in-memory filesystem and tracks uid/gid itself, so tests can
// model files owned by other principals and inject failures for
// individual operations without root privileges.
package hostfs
