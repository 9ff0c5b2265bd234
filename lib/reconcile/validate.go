// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/e3dc-control/installer/lib/sudoers"
)

// ValidateCatalog checks every definition and reports all problems at
// once. The returned error wraps ErrInvalidCatalog.
func ValidateCatalog(definitions []ResourceDefinition) error {
	var problems []error
	seen := make(map[string]bool, len(definitions))
	tasks := make(map[string]string)
	for index, definition := range definitions {
		label := definition.ID
		if label == "" {
			label = fmt.Sprintf("#%d", index)
			problems = append(problems, fmt.Errorf("resource %s: empty id", label))
		} else if seen[definition.ID] {
			problems = append(problems, fmt.Errorf("resource %s: duplicate id", label))
		}
		seen[definition.ID] = true

		if definition.Kind == KindPeriodicTask && definition.Task.Tag != "" {
			key := definition.Task.Principal + "\x00" + definition.Task.Tag
			if other, taken := tasks[key]; taken {
				problems = append(problems, fmt.Errorf("resource %s: task tag %q in crontab of %s already declared by %s",
					label, definition.Task.Tag, definition.Task.Principal, other))
			}
			tasks[key] = label
		}

		for _, problem := range validateDefinition(definition) {
			problems = append(problems, fmt.Errorf("resource %s: %w", label, problem))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidCatalog, errors.Join(problems...))
}

func validateDefinition(definition ResourceDefinition) []error {
	var problems []error
	if !definition.Kind.known() {
		return []error{fmt.Errorf("unknown kind %q", definition.Kind)}
	}

	if definition.Kind == KindPeriodicTask {
		if err := definition.Task.Validate(); err != nil {
			problems = append(problems, fmt.Errorf("periodic task: %w", err))
		}
		if definition.Absent && definition.Required {
			problems = append(problems, errors.New("an absent task cannot be required"))
		}
		return problems
	}
	if definition.Absent {
		problems = append(problems, fmt.Errorf("only periodic tasks can be declared absent, not %s", definition.Kind))
	}

	if !filepath.IsAbs(definition.Path) || filepath.Clean(definition.Path) != definition.Path {
		problems = append(problems, fmt.Errorf("path %q is not absolute and clean", definition.Path))
	}
	if definition.Owner == "" || definition.Group == "" {
		problems = append(problems, errors.New("owner and group are required"))
	}
	if definition.Mode&^fs.ModePerm != 0 {
		problems = append(problems, fmt.Errorf("mode %v has bits beyond rwx", definition.Mode))
	}
	if definition.ModeMatch != ModeExact && definition.ModeMatch != ModeIncludes {
		problems = append(problems, fmt.Errorf("unknown mode match %v", definition.ModeMatch))
	}

	switch definition.Kind {
	case KindDirectory:
		if definition.Content != nil {
			problems = append(problems, errors.New("directories cannot declare content"))
		}
	case KindPrivilegeGrant:
		if len(definition.Content) == 0 {
			problems = append(problems, errors.New("privilege grant without content"))
		}
		if definition.ModeMatch != ModeExact {
			problems = append(problems, errors.New("privilege grant mode must match exactly"))
		}
		if definition.Mode&0o022 != 0 {
			problems = append(problems, fmt.Errorf("privilege grant mode %04o is writable by group or others", definition.Mode))
		}
		if !sudoers.ValidFileName(filepath.Base(definition.Path)) {
			problems = append(problems, fmt.Errorf("sudo ignores drop-in name %q", filepath.Base(definition.Path)))
		}
	}
	return problems
}
