// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package crontab manages tagged entries in per-user crontab lists.
//
// A managed [Entry] renders as one canonical line:
//
//	<schedule> <command> # <tag>
//
// The tag identifies the entry across edits. [Table.Find] locates an
// entry by its tag first and, for lines written before tags existed,
// by an exact match on schedule and command (whitespace-normalized).
// A tagged line whose schedule or command differs is found but not
// exact, and [Table.Ensure] rewrites it in place. Untouched lines,
// comments, and environment assignments keep their position.
//
// A [Store] reads and replaces a principal's whole list. [CommandStore]
// goes through crontab(1), which installs the new list atomically.
// [SpoolStore] rewrites the spool file directly through
// [hostfs.FS.WriteFileAtomic], for hosts without a crontab binary.
package crontab
