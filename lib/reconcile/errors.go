// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"
)

var (
	// ErrInvalidCatalog wraps every catalog validation failure. It is
	// the only error that aborts a cycle before inspection.
	ErrInvalidCatalog = errors.New("invalid resource catalog")

	// ErrConfirmationDeclined may be returned by a Confirmer instead of
	// (false, nil). Either way the run ends skipped without error.
	ErrConfirmationDeclined = errors.New("confirmation declined")
)

// InspectionError records why a resource could not be observed.
type InspectionError struct {
	ResourceID string
	Location   string
	Err        error
}

func (e *InspectionError) Error() string {
	return fmt.Sprintf("inspecting %s (%s): %v", e.ResourceID, e.Location, e.Err)
}

func (e *InspectionError) Unwrap() error { return e.Err }

// CorrectionError records why an Issue was not fixed.
type CorrectionError struct {
	ResourceID string
	IssueKind  IssueKind
	Err        error
}

func (e *CorrectionError) Error() string {
	return fmt.Sprintf("fixing %s on %s: %v", e.IssueKind, e.ResourceID, e.Err)
}

func (e *CorrectionError) Unwrap() error { return e.Err }

// IsPermission reports whether err stems from missing privileges
// (EPERM or EACCES), for which re-running as root is the remedy.
func IsPermission(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES)
}
