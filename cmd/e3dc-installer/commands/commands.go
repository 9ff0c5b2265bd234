// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the e3dc-installer command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/e3dc-control/installer/cmd/e3dc-installer/cli"
	"github.com/e3dc-control/installer/cmd/e3dc-installer/permissions"
	"github.com/e3dc-control/installer/lib/version"
)

// Root returns the complete command tree. A nil host means the
// machine the installer runs on.
func Root(host *permissions.Host) *cli.Command {
	return &cli.Command{
		Name: "e3dc-installer",
		Description: `e3dc-installer: maintenance tool for E3DC-Control appliances.

Keeps the ownership and modes of the installation, the web UI files, the
crontab entries, and the sudo grant in the state the controller and the
web UI need.`,
		Subcommands: []*cli.Command{
			permissions.Command(host),
			versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Check the installation after an update",
				Command:     "e3dc-installer permissions check",
			},
			{
				Description: "Repair ownership and modes",
				Command:     "sudo e3dc-installer permissions fix",
			},
			{
				Description: "Show what the installer manages",
				Command:     "e3dc-installer permissions list",
			},
		},
	}
}

type versionParams struct {
	cli.JSONOutput
}

func versionCommand() *cli.Command {
	var params versionParams
	var command *cli.Command
	command = &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Params:  func() any { return &params },
		Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
			if done, err := params.EmitJSON(command.Out(), version.Current()); done {
				return err
			}
			_, err := fmt.Fprintf(command.Out(), "e3dc-installer %s\n", version.Full())
			return err
		},
	}
	return command
}
