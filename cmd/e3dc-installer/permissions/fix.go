// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package permissions

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/e3dc-control/installer/cmd/e3dc-installer/cli"
	"github.com/e3dc-control/installer/lib/audit"
	"github.com/e3dc-control/installer/lib/lock"
	"github.com/e3dc-control/installer/lib/reconcile"
	"github.com/e3dc-control/installer/lib/version"
)

type fixParams struct {
	cli.ConfigFlag
	cli.JSONOutput
	Yes    bool `json:"-" flag:"yes,y" desc:"apply corrections without asking"`
	DryRun bool `json:"-" flag:"dry-run" desc:"show what would be corrected without changing anything"`
}

func fixCommand(host *Host) *cli.Command {
	var params fixParams
	var command *cli.Command
	command = &cli.Command{
		Name:    "fix",
		Summary: "Repair deviations after confirmation",
		Description: `Inspect every resource, list the deviations, and repair them after
confirmation. A failed repair does not stop the others. Every issue and
every repair attempt is appended to the audit log (by default
logs/permissions.log in the installation).

Only one fix runs per installation at a time.`,
		Usage: "e3dc-installer permissions fix [flags]",
		Examples: []cli.Example{
			{Description: "Review and repair interactively", Command: "sudo e3dc-installer permissions fix"},
			{Description: "Repair from a script", Command: "sudo e3dc-installer permissions fix --yes --json"},
			{Description: "Show the plan only", Command: "e3dc-installer permissions fix --dry-run"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			return runFix(ctx, host, params, command, logger)
		},
	}
	return command
}

func runFix(ctx context.Context, host *Host, params fixParams, command *cli.Command, logger *slog.Logger) error {
	if !params.Yes && !params.DryRun {
		if params.OutputJSON {
			return cli.Validation("--json cannot prompt for confirmation; add --yes or --dry-run")
		}
		if !host.Interactive() {
			return cli.Validation("stdin is not a terminal; add --yes to apply corrections without asking")
		}
	}

	s, err := openSession(host, params.ConfigPath, logger)
	if err != nil {
		return err
	}

	auditPath := ""
	if !params.DryRun {
		held, err := lock.Acquire(s.config.Paths.LockDir, s.environment.InstallDir)
		if errors.Is(err, lock.ErrLocked) {
			return cli.Conflict("%v", err)
		}
		if err != nil {
			if reconcile.IsPermission(err) {
				return cli.Forbidden("%v (re-run with sudo)", err)
			}
			return err
		}
		defer held.Release()

		trail, err := audit.Open(s.auditLogPath(),
			slog.String("installer_version", version.Info()),
			slog.String("install_user", s.environment.InstallUser),
		)
		if err != nil {
			logger.Warn("audit log unavailable; continuing without it", "path", s.auditLogPath(), "error", err)
		} else {
			defer trail.Close()
			auditPath = trail.Path()
			// The checklist is the console view; engine records go to the
			// audit trail, and to the console logger only at debug level.
			s.engine.Logger = slog.New(audit.Fanout(debugOnly{logger.Handler()}, trail.Handler()))
		}
	}

	out := command.Out()
	list := newChecklist(out, host.ColorProfile)
	gate := &presenter{checklist: list, in: host.Stdin, approve: params.Yes}
	if params.OutputJSON {
		// Issues go out in the JSON document instead.
		gate.checklist = newChecklist(io.Discard, host.ColorProfile)
	}
	s.engine.Confirmer = gate

	report, runErr := s.engine.Run(ctx, reconcile.Options{DryRun: params.DryRun})
	if runErr != nil && report.Status != reconcile.StatusSkipped {
		return runErr
	}

	exit := func() error {
		if runErr != nil {
			return runErr
		}
		if !report.Converged() {
			return &cli.ExitError{Code: 1}
		}
		return nil
	}

	output := newReportOutput(s, report)
	output.AuditLog = auditPath
	if done, err := params.EmitJSON(out, output); done {
		if err != nil {
			return err
		}
		return exit()
	}

	switch {
	case report.Status == reconcile.StatusPending:
		list.issues(report.Issues, labelPlan)
		list.blank()
		list.text("%d issue(s) would be corrected. Run without --dry-run to apply.", len(report.Issues))
		return exit()
	case !gate.shown:
		list.issues(report.Issues, labelIssue)
	default:
		list.blank()
	}
	list.outcomes(report.Outcomes)
	list.summary(report, "e3dc-installer permissions fix")
	return exit()
}

