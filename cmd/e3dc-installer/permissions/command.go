// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package permissions

import (
	"github.com/e3dc-control/installer/cmd/e3dc-installer/cli"
)

// Command returns the "permissions" command group. A nil host means
// [SystemHost].
func Command(host *Host) *cli.Command {
	if host == nil {
		host = SystemHost()
	}
	return &cli.Command{
		Name:    "permissions",
		Summary: "Check and repair ownership, modes, crontab entries, and sudo grants",
		Description: `Compare the E3DC-Control installation against the resources it needs:
directories and config files shared with the web server, executable
scripts, the autostart and history-backup crontab entries, and the sudo
grant that lets the web UI restart the controller.

"check" only reports. "fix" reports, asks, and repairs; every repair is
verified by inspecting the resource again and recorded in the audit log.`,
		Subcommands: []*cli.Command{
			checkCommand(host),
			fixCommand(host),
			listCommand(host),
		},
	}
}
