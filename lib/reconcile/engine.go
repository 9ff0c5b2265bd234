// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/e3dc-control/installer/lib/clock"
)

// Confirmer gates corrections. It sees every Issue of the cycle before
// any change is made.
type Confirmer interface {
	Confirm(ctx context.Context, issues []Issue) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, issues []Issue) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, issues []Issue) (bool, error) {
	return f(ctx, issues)
}

// AlwaysConfirm approves every cycle (--yes).
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, []Issue) (bool, error) {
	return true, nil
})

// Options adjust a single Run.
type Options struct {
	// DryRun stops after inspection; the report lists the issues with
	// StatusPending.
	DryRun bool
}

// Engine runs reconciliation cycles over a fixed catalog.
type Engine struct {
	Catalog   []ResourceDefinition
	Inspector *Inspector
	Corrector *Corrector
	Confirmer Confirmer

	// Clock stamps reports. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives one record per Issue, one per CorrectionOutcome,
	// and a summary. Nil discards.
	Logger *slog.Logger
}

// Check inspects the catalog and reports issues without changing
// anything.
func (e *Engine) Check(ctx context.Context) (Report, error) {
	report, err := e.inspect(ctx)
	if err != nil {
		return report, err
	}
	return e.finish(report), nil
}

// inspect runs Inspect and Diff over the catalog in declaration order.
func (e *Engine) inspect(ctx context.Context) (Report, error) {
	if err := ValidateCatalog(e.Catalog); err != nil {
		return Report{Status: StatusSkipped}, err
	}
	report := Report{StartedAt: e.now()}

	for _, definition := range e.Catalog {
		if err := ctx.Err(); err != nil {
			report.Status = StatusSkipped
			return e.finish(report), err
		}
		observed := e.Inspector.Inspect(ctx, definition)
		for _, issue := range Diff(definition, observed) {
			e.logger().Warn("issue found",
				"resource", issue.ResourceID,
				"kind", string(issue.Kind),
				"location", issue.Location,
				"expected", issue.Expected,
				"observed", issue.Observed,
			)
			report.Issues = append(report.Issues, issue)
		}
	}

	report.Status = StatusClean
	if len(report.Issues) > 0 {
		report.Status = StatusPending
	}
	return report, nil
}

// Run inspects the catalog, asks the Confirmer, and corrects every
// Issue in order. A failed correction never stops the batch.
//
// The returned error is non-nil only for an invalid catalog, a
// cancelled context before corrections start, or a Confirmer failure.
// Correction failures are reported through the Report. Whenever the
// error is non-nil the Report's Status is StatusSkipped.
func (e *Engine) Run(ctx context.Context, options Options) (Report, error) {
	report, err := e.inspect(ctx)
	if err != nil {
		return report, err
	}
	if report.Status == StatusClean || options.DryRun {
		return e.finish(report), nil
	}

	approved, err := e.confirm(ctx, report.Issues)
	if !approved || err != nil {
		report.Status = StatusSkipped
		return e.finish(report), err
	}

	definitions := make(map[string]ResourceDefinition, len(e.Catalog))
	for _, definition := range e.Catalog {
		definitions[definition.ID] = definition
	}
	for _, issue := range report.Issues {
		outcome := e.Corrector.Apply(ctx, definitions[issue.ResourceID], issue)
		if outcome.Applied {
			e.logger().Info("corrected",
				"resource", outcome.ResourceID,
				"kind", string(outcome.IssueKind),
				"location", outcome.Location,
			)
		} else {
			e.logger().Error("correction failed",
				"resource", outcome.ResourceID,
				"kind", string(outcome.IssueKind),
				"location", outcome.Location,
				"error", outcome.Err,
				"permission_denied", IsPermission(outcome.Err),
			)
		}
		report.record(outcome)
	}

	report.Status = StatusCorrected
	if report.Failed > 0 {
		report.Status = StatusPartial
	}
	return e.finish(report), nil
}

// confirm returns (false, nil) for a declined confirmation and
// (false, ctx.Err()) when the context ends at the gate.
func (e *Engine) confirm(ctx context.Context, issues []Issue) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if e.Confirmer == nil {
		return false, errors.New("no confirmer configured")
	}
	approved, err := e.Confirmer.Confirm(ctx, issues)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if errors.Is(err, ErrConfirmationDeclined) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("confirming corrections: %w", err)
	}
	return approved, nil
}

func (e *Engine) finish(report Report) Report {
	report.FinishedAt = e.now()
	e.logger().Info("reconciliation finished",
		"status", string(report.Status),
		"summary", report.Summary(),
		"issues", len(report.Issues),
		"attempted", report.Attempted,
		"corrected", report.Corrected,
		"failed", report.Failed,
	)
	return report
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return clock.Real().Now()
	}
	return e.Clock.Now()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}
