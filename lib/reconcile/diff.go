// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"fmt"
	"io/fs"
)

// Diff returns one Issue per axis on which observed disagrees with
// definition, in a fixed order: missing, owner, group, mode,
// executability, content. An absent resource yields at most a missing
// Issue, and a task declared Absent at most an unexpected one.
func Diff(definition ResourceDefinition, observed ObservedState) []Issue {
	issue := func(kind IssueKind, expected, got string) Issue {
		return Issue{
			ResourceID: definition.ID,
			Kind:       kind,
			Location:   definition.Location(),
			Expected:   expected,
			Observed:   got,
		}
	}

	if definition.Absent {
		if observed.InspectionError == nil && observed.Exists {
			return []Issue{issue(IssueUnexpected, "absent", observed.TaskLine)}
		}
		return nil
	}
	if observed.InspectionError != nil {
		return []Issue{issue(IssueMissing, "present", "unknown: "+observed.InspectionError.Error())}
	}
	if !observed.Exists {
		if definition.Required {
			return []Issue{issue(IssueMissing, "present", "absent")}
		}
		return nil
	}

	var issues []Issue
	if definition.Kind.onFilesystem() {
		if observed.Owner != definition.Owner {
			issues = append(issues, issue(IssueOwnerMismatch, definition.Owner, observed.Owner))
		}
		if observed.Group != definition.Group {
			issues = append(issues, issue(IssueGroupMismatch, definition.Group, observed.Group))
		}
		if !modeSatisfied(definition, observed.Mode) {
			issues = append(issues, issue(IssueModeMismatch, describeMode(definition), formatMode(observed.Mode)))
		}
	}
	if definition.Kind == KindExecutableFile && !observed.Executable {
		issues = append(issues, issue(IssueNotExecutable, "executable", formatMode(observed.Mode)))
	}
	if definition.contentChecked() && !observed.ContentMatches {
		expected := digest(definition.Content)
		got := observed.ContentDigest
		if definition.Kind == KindPeriodicTask {
			expected, got = definition.Task.Line(), observed.TaskLine
		}
		issues = append(issues, issue(IssueContentMismatch, expected, got))
	}
	return issues
}

// modeSatisfied compares the nine permission bits. Setuid, setgid,
// and sticky bits on the host are neither required nor reported.
func modeSatisfied(definition ResourceDefinition, observed fs.FileMode) bool {
	want := definition.Mode.Perm()
	if definition.ModeMatch == ModeIncludes {
		return observed.Perm()&want == want
	}
	return observed.Perm() == want
}

// correctedMode returns the mode a chmod should apply to current to
// satisfy definition. Special bits already set are kept.
func correctedMode(definition ResourceDefinition, current fs.FileMode) fs.FileMode {
	special := current & (fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
	if definition.ModeMatch == ModeIncludes {
		return special | current.Perm() | definition.Mode.Perm()
	}
	return special | definition.Mode.Perm()
}

// withExecute adds the execute bit for every class that can read:
// 0640 becomes 0750. No bit is cleared.
func withExecute(current fs.FileMode) fs.FileMode {
	mode := current
	for _, class := range []struct{ read, execute fs.FileMode }{
		{0o400, 0o100},
		{0o040, 0o010},
		{0o004, 0o001},
	} {
		if current&class.read != 0 {
			mode |= class.execute
		}
	}
	// An unreadable file still needs the owner bit to count as
	// executable.
	return mode | 0o100
}

func describeMode(definition ResourceDefinition) string {
	if definition.ModeMatch == ModeIncludes {
		return "at least " + formatMode(definition.Mode)
	}
	return formatMode(definition.Mode)
}

func formatMode(mode fs.FileMode) string {
	return fmt.Sprintf("%04o", uint32(mode.Perm()))
}
