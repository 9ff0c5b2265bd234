// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package permissions

import (
	"context"
	"log/slog"

	"github.com/e3dc-control/installer/cmd/e3dc-installer/cli"
	"github.com/e3dc-control/installer/lib/reconcile"
)

type checkParams struct {
	cli.ConfigFlag
	cli.JSONOutput
}

// reportOutput is the --json form of a check or fix run.
type reportOutput struct {
	reconcile.Report
	Summary     string `json:"summary"`
	InstallUser string `json:"install_user"`
	InstallDir  string `json:"install_dir"`
	AuditLog    string `json:"audit_log,omitempty"`
}

func newReportOutput(s *session, report reconcile.Report) reportOutput {
	if report.Issues == nil {
		report.Issues = []reconcile.Issue{}
	}
	return reportOutput{
		Report:      report,
		Summary:     report.Summary(),
		InstallUser: s.environment.InstallUser,
		InstallDir:  s.environment.InstallDir,
	}
}

func checkCommand(host *Host) *cli.Command {
	var params checkParams
	var command *cli.Command
	command = &cli.Command{
		Name:    "check",
		Summary: "Report deviations without changing anything",
		Usage:   "e3dc-installer permissions check [flags]",
		Examples: []cli.Example{
			{Description: "Check the installation", Command: "e3dc-installer permissions check"},
			{Description: "Machine-readable output", Command: "e3dc-installer permissions check --json"},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			return runCheck(ctx, host, params, command, logger)
		},
	}
	return command
}

func runCheck(ctx context.Context, host *Host, params checkParams, command *cli.Command, logger *slog.Logger) error {
	s, err := openSession(host, params.ConfigPath, logger)
	if err != nil {
		return err
	}

	report, err := s.engine.Check(ctx)
	if err != nil {
		return err
	}

	exit := func() error {
		if report.Status != reconcile.StatusClean {
			return &cli.ExitError{Code: 1}
		}
		return nil
	}

	if done, err := params.EmitJSON(command.Out(), newReportOutput(s, report)); done {
		if err != nil {
			return err
		}
		return exit()
	}

	list := newChecklist(command.Out(), host.ColorProfile)
	list.issues(report.Issues, labelIssue)
	list.blank()
	list.text("%s", report.Summary())
	if len(report.Issues) > 0 {
		list.text("Run \"sudo e3dc-installer permissions fix\" to repair.")
	}
	return exit()
}
