// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"fmt"
	"time"
)

// Status is the terminal state of a cycle.
type Status string

const (
	// StatusClean: inspection found nothing to fix.
	StatusClean Status = "clean"

	// StatusPending: issues were found and, by request, not corrected
	// (Check or a dry run).
	StatusPending Status = "pending"

	// StatusSkipped: the operator declined or the gate was cancelled.
	StatusSkipped Status = "skipped"

	// StatusCorrected: every issue was fixed.
	StatusCorrected Status = "corrected"

	// StatusPartial: at least one correction failed.
	StatusPartial Status = "partial"
)

// Report describes one cycle. Every run returns its own Report; no
// state is shared between runs.
type Report struct {
	Status     Status              `json:"status"`
	Issues     []Issue             `json:"issues"`
	Outcomes   []CorrectionOutcome `json:"outcomes,omitempty"`
	Attempted  int                 `json:"attempted"`
	Corrected  int                 `json:"corrected"`
	Failed     int                 `json:"failed"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// Summary is the one-line result shown to the operator.
func (r Report) Summary() string {
	switch r.Status {
	case StatusClean:
		return "nothing to fix"
	case StatusPending:
		if len(r.Issues) == 1 {
			return "1 issue found"
		}
		return fmt.Sprintf("%d issues found", len(r.Issues))
	case StatusSkipped:
		return "skipped: no changes made"
	case StatusCorrected:
		return fmt.Sprintf("fixed %d/%d", r.Corrected, r.Attempted)
	case StatusPartial:
		return fmt.Sprintf("fixed %d/%d (see above for failures)", r.Corrected, r.Attempted)
	}
	return string(r.Status)
}

// Converged reports whether the host matches the catalog at the end of
// the cycle.
func (r Report) Converged() bool {
	return r.Status == StatusClean || r.Status == StatusCorrected
}

func (r *Report) record(outcome CorrectionOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
	r.Attempted++
	if outcome.Applied {
		r.Corrected++
	} else {
		r.Failed++
	}
}
