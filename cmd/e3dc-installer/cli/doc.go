// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for e3dc-installer.
//
// The central type is [Command]: a named subcommand with optional
// nested [Command.Subcommands], a parameter struct whose tags define
// its flags ([BindFlags]), and a Run function that receives a context
// and a logger scoped to the command path. Commands are assembled into
// a tree in cmd/e3dc-installer/commands and dispatched via
// [Command.Execute].
//
// Unknown subcommands and flags get a "did you mean" suggestion when
// a known name is within edit distance 3.
//
// Commands whose non-zero exit is an expected outcome (issues found,
// corrections failed) print their own output and return [ExitError].
package cli
