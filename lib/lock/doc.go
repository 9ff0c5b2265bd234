// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package lock serializes reconciliation runs against one
// installation. Two installers correcting the same tree at once would
// interleave chowns and crontab rewrites; [Acquire] takes an advisory
// flock(2) on a file named after the installation root so the second
// run fails fast with [ErrLocked] instead.
//
// The kernel drops the lock when the process exits, so a crashed run
// never leaves a stale lock behind. The lock file itself is left in
// place.
package lock
