// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package permissions

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/e3dc-control/installer/lib/reconcile"
)

// Checklist labels. Five columns wide, like every other checklist the
// installer prints.
const (
	labelIssue = "ISSUE"
	labelFixed = "FIXED"
	labelFail  = "FAIL"
	labelOK    = "OK"
	labelPlan  = "PLAN"
)

// checklist writes one line per issue or correction:
//
//	[ISSUE]  /home/pi/E3DC-Control/e3dc.config.txt  owner-mismatch: expected pi, observed alice
type checklist struct {
	w      io.Writer
	styles map[string]lipgloss.Style
}

func newChecklist(w io.Writer, profile termenv.Profile) *checklist {
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	// ColorProfile() re-detects from the writer unless set explicitly.
	renderer.SetColorProfile(profile)

	color := func(value string) lipgloss.Style {
		return renderer.NewStyle().Bold(true).Foreground(lipgloss.Color(value))
	}
	return &checklist{
		w: w,
		styles: map[string]lipgloss.Style{
			labelIssue: color("11"),
			labelFixed: color("10"),
			labelFail:  color("9"),
			labelOK:    color("10"),
			labelPlan:  color("12"),
		},
	}
}

func (c *checklist) line(label, name, message string) {
	styled := fmt.Sprintf("[%-5s]", label)
	if style, ok := c.styles[label]; ok {
		styled = style.Render(styled)
	}
	fmt.Fprintf(c.w, "%s  %-40s  %s\n", styled, name, message)
}

func (c *checklist) blank() { fmt.Fprintln(c.w) }

func (c *checklist) text(format string, args ...any) {
	fmt.Fprintf(c.w, format+"\n", args...)
}

func issueMessage(issue reconcile.Issue) string {
	return fmt.Sprintf("%s: expected %s, observed %s", issue.Kind, issue.Expected, issue.Observed)
}

func (c *checklist) issues(issues []reconcile.Issue, label string) {
	for _, issue := range issues {
		c.line(label, issue.Location, issueMessage(issue))
	}
}

func (c *checklist) outcomes(outcomes []reconcile.CorrectionOutcome) {
	for _, outcome := range outcomes {
		if outcome.Applied {
			c.line(labelFixed, outcome.Location, string(outcome.IssueKind))
			continue
		}
		c.line(labelFail, outcome.Location, fmt.Sprintf("%s: %s", outcome.IssueKind, failureReason(outcome.Err)))
	}
}

// failureReason trims the resource prefix a CorrectionError carries;
// the checklist already shows where.
func failureReason(err error) string {
	if err == nil {
		return "unknown error"
	}
	var correctionError *reconcile.CorrectionError
	if errors.As(err, &correctionError) && correctionError.Err != nil {
		return correctionError.Err.Error()
	}
	return err.Error()
}

// summary prints the aggregate line and any follow-up guidance.
func (c *checklist) summary(report reconcile.Report, rerun string) {
	c.blank()
	c.text("%s", report.Summary())

	permissionDenied := false
	for _, outcome := range report.Outcomes {
		if !outcome.Applied && reconcile.IsPermission(outcome.Err) {
			permissionDenied = true
		}
	}
	if permissionDenied {
		c.blank()
		c.text("Some corrections failed due to insufficient permissions. Re-run with sudo:")
		c.text("  sudo %s", rerun)
	}
}
