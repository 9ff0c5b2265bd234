// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package reconcile brings host resources into the state a catalog
// declares.
//
// A cycle has three stages:
//
//   - [Inspector.Inspect] observes one [ResourceDefinition] and returns
//     an [ObservedState]. It never fails: an OS error is recorded on
//     the state and the resource counts as missing.
//   - [Diff] compares definition and observation and returns one
//     [Issue] per disagreeing axis (existence, owner, group, mode,
//     executability, content). It is a pure function.
//   - [Corrector.Apply] fixes one Issue, re-inspects, and reports a
//     [CorrectionOutcome] that is Applied only when the axis is
//     resolved.
//
// [Engine] runs the stages over a whole catalog, asks a [Confirmer]
// before changing anything, keeps correcting after individual
// failures, and returns a [Report] by value. Running it again on a
// converged host finds no issues and changes nothing.
//
// Supported kinds are directories, regular files (optionally with
// declared content), executable files, periodic tasks in a
// principal's crontab, and sudoers privilege grants.
package reconcile
