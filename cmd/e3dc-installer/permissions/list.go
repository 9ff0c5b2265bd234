// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package permissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/e3dc-control/installer/cmd/e3dc-installer/cli"
	"github.com/e3dc-control/installer/lib/cron"
	"github.com/e3dc-control/installer/lib/reconcile"
)

type listParams struct {
	cli.ConfigFlag
	cli.JSONOutput
}

// resourceEntry is one catalog row in list output.
type resourceEntry struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Location    string `json:"location"`
	Owner       string `json:"owner,omitempty"`
	Group       string `json:"group,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Required    bool   `json:"required"`
	Absent      bool   `json:"absent,omitempty"`
	Schedule    string `json:"schedule,omitempty"`
	Command     string `json:"command,omitempty"`
	NextRun     string `json:"next_run,omitempty"`
	Description string `json:"description"`
}

func listCommand(host *Host) *cli.Command {
	var params listParams
	var command *cli.Command
	command = &cli.Command{
		Name:    "list",
		Summary: "Show the managed resources and their expected state",
		Usage:   "e3dc-installer permissions list [flags]",
		Params:  func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			s, err := openSession(host, params.ConfigPath, logger)
			if err != nil {
				return err
			}

			entries := describe(s.catalog, host.Clock.Now())
			if done, err := params.EmitJSON(command.Out(), entries); done {
				return err
			}

			writer := tabwriter.NewWriter(command.Out(), 2, 0, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tKIND\tLOCATION\tOWNER\tMODE\tREQUIRED")
			for _, entry := range entries {
				owner, mode := "-", "-"
				if entry.Owner != "" {
					owner = entry.Owner + ":" + entry.Group
					mode = entry.Mode
				}
				location := entry.Location
				if entry.Absent {
					location = entry.Location + " (must not contain)"
				} else if entry.Schedule != "" {
					location = fmt.Sprintf("%s (%s, next %s)", entry.Location, entry.Schedule, entry.NextRun)
				}
				required := "no"
				if entry.Required {
					required = "yes"
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n", entry.ID, entry.Kind, location, owner, mode, required)
			}
			return writer.Flush()
		},
	}
	return command
}

func describe(definitions []reconcile.ResourceDefinition, now time.Time) []resourceEntry {
	entries := make([]resourceEntry, 0, len(definitions))
	for _, definition := range definitions {
		entry := resourceEntry{
			ID:          definition.ID,
			Kind:        string(definition.Kind),
			Location:    definition.Location(),
			Required:    definition.Required,
			Absent:      definition.Absent,
			Description: definition.Description,
		}
		if definition.Absent {
			entry.Command = definition.Task.Command
		} else if definition.Kind == reconcile.KindPeriodicTask {
			entry.Schedule = definition.Task.Schedule
			entry.Command = definition.Task.Command
			entry.NextRun = nextRun(definition.Task.Schedule, now)
		} else {
			entry.Owner = definition.Owner
			entry.Group = definition.Group
			entry.Mode = fmt.Sprintf("%04o", uint32(definition.Mode))
			if definition.ModeMatch == reconcile.ModeIncludes {
				entry.Mode = "+" + entry.Mode
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func nextRun(expression string, now time.Time) string {
	schedule, err := cron.Parse(expression)
	if err != nil {
		return "invalid schedule"
	}
	next, err := schedule.Next(now)
	if errors.Is(err, cron.ErrNoNextRun) {
		if schedule.AtBoot() {
			return "at boot"
		}
		return "never"
	}
	if err != nil {
		return "unknown"
	}
	return next.Format(time.RFC3339)
}
