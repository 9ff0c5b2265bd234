// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/e3dc-control/installer/lib/crontab"
)

// Kind is the type of a managed resource.
type Kind string

const (
	KindDirectory      Kind = "directory"
	KindFile           Kind = "file"
	KindExecutableFile Kind = "executable-file"
	KindPeriodicTask   Kind = "periodic-task"
	KindPrivilegeGrant Kind = "privilege-grant"
)

// onFilesystem reports whether the kind is a path with ownership and
// mode.
func (k Kind) onFilesystem() bool {
	switch k {
	case KindDirectory, KindFile, KindExecutableFile, KindPrivilegeGrant:
		return true
	}
	return false
}

func (k Kind) known() bool {
	return k.onFilesystem() || k == KindPeriodicTask
}

// IssueKind names the axis on which observation and definition
// disagree.
type IssueKind string

const (
	IssueMissing         IssueKind = "missing"
	IssueOwnerMismatch   IssueKind = "owner-mismatch"
	IssueGroupMismatch   IssueKind = "group-mismatch"
	IssueModeMismatch    IssueKind = "mode-mismatch"
	IssueNotExecutable   IssueKind = "not-executable"
	IssueContentMismatch IssueKind = "content-mismatch"

	// IssueUnexpected: a resource declared Absent is present.
	IssueUnexpected IssueKind = "unexpected"
)

// ModeMatch selects how observed permission bits are compared.
type ModeMatch int

const (
	// ModeExact requires the nine permission bits to equal Mode.
	ModeExact ModeMatch = iota

	// ModeIncludes requires every bit of Mode to be set; extra bits
	// are allowed. Used for home directories, where only o+rx matters.
	ModeIncludes
)

func (m ModeMatch) String() string {
	switch m {
	case ModeExact:
		return "exact"
	case ModeIncludes:
		return "includes"
	}
	return fmt.Sprintf("ModeMatch(%d)", int(m))
}

// ResourceDefinition declares the desired state of one resource.
// Definitions are immutable once the catalog is built.
type ResourceDefinition struct {
	// ID is unique within a catalog and stable across releases; it
	// appears in reports and audit logs.
	ID   string
	Kind Kind

	// Path locates filesystem kinds and privilege grants.
	Path string

	// Task locates and defines a periodic task.
	Task crontab.Entry

	Owner     string
	Group     string
	Mode      fs.FileMode
	ModeMatch ModeMatch

	// Content, when non-nil, makes a file content-checked. Required
	// for privilege grants.
	Content []byte

	// Required resources are reported missing when absent. Optional
	// resources are only checked when present.
	Required bool

	// Absent inverts a periodic task: the entry must not be in the
	// principal's list. An absent task whose list cannot be read is
	// not reported.
	Absent bool

	Description string
}

// Location is a human-readable address for the resource.
func (d ResourceDefinition) Location() string {
	if d.Kind == KindPeriodicTask {
		return "crontab of " + d.Task.Principal
	}
	return d.Path
}

// contentChecked reports whether Diff compares content.
func (d ResourceDefinition) contentChecked() bool {
	switch d.Kind {
	case KindPeriodicTask, KindPrivilegeGrant:
		return true
	case KindFile, KindExecutableFile:
		return d.Content != nil
	}
	return false
}

// ObservedState is what inspection found for one resource in one
// cycle. It is never cached across cycles.
type ObservedState struct {
	Exists bool

	// Owner and Group are names, or decimal ids when the host has no
	// name for them.
	Owner string
	Group string
	UID   uint32
	GID   uint32

	// Mode holds the permission bits including setuid, setgid, and
	// sticky.
	Mode fs.FileMode

	// Executable is true when the owner execute bit is set.
	Executable bool

	// ContentMatches is true when content equals the declaration, or
	// when the resource is not content-checked. For periodic tasks it
	// is false when a tagged line has drifted.
	ContentMatches bool

	// ContentDigest identifies the observed content in reports.
	ContentDigest string

	// TaskLine is the crontab line that matched a periodic task.
	TaskLine string

	// InspectionError is set when the host could not be inspected.
	// Diff reports such a resource as missing.
	InspectionError error
}

// Issue is one disagreement between a definition and an observation.
type Issue struct {
	ResourceID string    `json:"resource"`
	Kind       IssueKind `json:"kind"`
	Location   string    `json:"location"`
	Expected   string    `json:"expected"`
	Observed   string    `json:"observed"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s (expected %s, observed %s)", i.ResourceID, i.Kind, i.Expected, i.Observed)
}

// CorrectionOutcome is the result of attempting to fix one Issue.
type CorrectionOutcome struct {
	ResourceID string
	IssueKind  IssueKind
	Location   string

	// Applied is true only when re-inspection after the correction
	// showed the axis resolved.
	Applied bool

	// Err is a *CorrectionError when Applied is false.
	Err error
}

func (o CorrectionOutcome) MarshalJSON() ([]byte, error) {
	type wire struct {
		ResourceID string    `json:"resource"`
		IssueKind  IssueKind `json:"kind"`
		Location   string    `json:"location"`
		Applied    bool      `json:"applied"`
		Error      string    `json:"error,omitempty"`
	}
	out := wire{
		ResourceID: o.ResourceID,
		IssueKind:  o.IssueKind,
		Location:   o.Location,
		Applied:    o.Applied,
	}
	if o.Err != nil {
		out.Error = o.Err.Error()
	}
	return json.Marshal(out)
}
