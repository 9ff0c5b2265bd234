// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package permissions

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/e3dc-control/installer/lib/clock"
	"github.com/e3dc-control/installer/lib/command"
	"github.com/e3dc-control/installer/lib/hostfs"
	"github.com/e3dc-control/installer/lib/principal"
)

// Host is everything the permissions commands touch outside the
// process. [SystemHost] returns the real one; tests substitute an
// in-memory filesystem and a static account database.
type Host struct {
	FS         hostfs.FS
	Principals principal.Resolver
	Runner     command.Runner
	Clock      clock.Clock

	// Getenv reads environment variables for install user detection.
	Getenv func(string) string

	// Accounts lists the host's accounts for install user detection.
	Accounts func() ([]principal.Account, error)

	// Stdin answers the confirmation prompt.
	Stdin io.Reader

	// Interactive reports whether Stdin is a terminal.
	Interactive func() bool

	// ColorProfile styles the checklist. termenv.Ascii disables
	// styling.
	ColorProfile termenv.Profile
}

// SystemHost returns the Host for the machine the installer runs on.
func SystemHost() *Host {
	return &Host{
		FS:         hostfs.NewOS(),
		Principals: principal.NewSystem(),
		Runner:     command.ExecRunner{},
		Clock:      clock.Real(),
		Getenv:     os.Getenv,
		Accounts: func() ([]principal.Account, error) {
			return principal.ReadPasswd("/etc/passwd")
		},
		Stdin: os.Stdin,
		Interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		ColorProfile: termenv.NewOutput(os.Stdout).EnvColorProfile(),
	}
}
