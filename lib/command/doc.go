// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package command runs privileged helper programs (crontab, visudo)
// with a bounded lifetime.
//
// Every invocation goes through a [Runner] so that callers can be
// tested without the real binaries. [ExecRunner] applies a per-call
// timeout: a helper that hangs (a stuck NSS lookup, a locked crontab
// spool) fails with [ErrTimeout] instead of blocking the reconciler.
package command
