// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/e3dc-control/installer/lib/command"
	"github.com/e3dc-control/installer/lib/sudoers"
)

// Corrector fixes Issues. It acts through the same host surfaces its
// Inspector observes and re-inspects after every change.
type Corrector struct {
	Inspector *Inspector

	// Grants validates privilege grant content before installation.
	// Nil skips validation.
	Grants sudoers.Validator

	// Timeout bounds each correction, including helper commands.
	// Zero means command.DefaultTimeout.
	Timeout time.Duration
}

// Apply fixes one Issue on definition. It never returns an error: a
// failure is carried on the outcome as a *CorrectionError.
//
// Cancelling ctx does not interrupt a correction once started; each
// Apply gets its own timeout instead.
func (c *Corrector) Apply(ctx context.Context, definition ResourceDefinition, issue Issue) CorrectionOutcome {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = command.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	err := c.correct(ctx, definition, issue)
	if err == nil {
		err = c.verify(ctx, definition, issue)
	}

	outcome := CorrectionOutcome{
		ResourceID: definition.ID,
		IssueKind:  issue.Kind,
		Location:   definition.Location(),
		Applied:    err == nil,
	}
	if err != nil {
		outcome.Err = &CorrectionError{ResourceID: definition.ID, IssueKind: issue.Kind, Err: err}
	}
	return outcome
}

func (c *Corrector) correct(ctx context.Context, definition ResourceDefinition, issue Issue) error {
	switch issue.Kind {
	case IssueMissing:
		return c.create(ctx, definition)
	case IssueOwnerMismatch, IssueGroupMismatch:
		return c.chown(definition)
	case IssueModeMismatch:
		return c.chmod(definition, correctedMode)
	case IssueNotExecutable:
		return c.chmod(definition, func(_ ResourceDefinition, current fs.FileMode) fs.FileMode {
			return withExecute(current)
		})
	case IssueUnexpected:
		return c.removeTask(ctx, definition)
	case IssueContentMismatch:
		switch definition.Kind {
		case KindPeriodicTask:
			return c.ensureTask(ctx, definition)
		case KindPrivilegeGrant:
			return c.installGrant(ctx, definition)
		default:
			return c.writeContent(definition)
		}
	}
	return fmt.Errorf("no correction for issue kind %q", issue.Kind)
}

func (c *Corrector) create(ctx context.Context, definition ResourceDefinition) error {
	// Nothing is created for a principal that cannot own it.
	if definition.Kind.onFilesystem() {
		if _, err := c.Inspector.resolveOwnership(definition); err != nil {
			return err
		}
	}
	switch definition.Kind {
	case KindDirectory:
		if err := c.Inspector.FS.MkdirAll(definition.Path, definition.Mode.Perm()); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
		return c.settle(definition)
	case KindFile, KindExecutableFile:
		if definition.Content != nil {
			return c.writeContent(definition)
		}
		if err := c.Inspector.FS.CreateFile(definition.Path, definition.Mode.Perm()); err != nil {
			return fmt.Errorf("creating file: %w", err)
		}
		if err := c.settle(definition); err != nil {
			return err
		}
		if definition.Kind == KindExecutableFile {
			return c.chmod(definition, func(definition ResourceDefinition, current fs.FileMode) fs.FileMode {
				return withExecute(correctedMode(definition, current))
			})
		}
		return nil
	case KindPeriodicTask:
		return c.ensureTask(ctx, definition)
	case KindPrivilegeGrant:
		return c.installGrant(ctx, definition)
	}
	return fmt.Errorf("cannot create resource of kind %q", definition.Kind)
}

// settle applies the declared ownership and mode to an existing path.
func (c *Corrector) settle(definition ResourceDefinition) error {
	if err := c.chown(definition); err != nil {
		return err
	}
	return c.chmod(definition, correctedMode)
}

func (c *Corrector) chown(definition ResourceDefinition) error {
	expected, err := c.Inspector.resolveOwnership(definition)
	if err != nil {
		return err
	}
	if err := c.Inspector.FS.Chown(definition.Path, int(expected.uid), int(expected.gid)); err != nil {
		return fmt.Errorf("changing owner to %s:%s: %w", definition.Owner, definition.Group, err)
	}
	return nil
}

func (c *Corrector) chmod(definition ResourceDefinition, compute func(ResourceDefinition, fs.FileMode) fs.FileMode) error {
	info, err := c.Inspector.FS.Stat(definition.Path)
	if err != nil {
		return err
	}
	current := info.Mode & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
	mode := compute(definition, current)
	if mode == current {
		return nil
	}
	if err := c.Inspector.FS.Chmod(definition.Path, mode); err != nil {
		return fmt.Errorf("changing mode to %s: %w", formatMode(mode), err)
	}
	return nil
}

// writeContent atomically replaces a content-checked file, then
// restores declared ownership and mode on the new inode.
func (c *Corrector) writeContent(definition ResourceDefinition) error {
	if _, err := c.Inspector.resolveOwnership(definition); err != nil {
		return err
	}
	if err := c.Inspector.FS.WriteFileAtomic(definition.Path, definition.Content, definition.Mode.Perm()); err != nil {
		return fmt.Errorf("writing content: %w", err)
	}
	return c.settle(definition)
}

// ensureTask inserts or repairs the task's line, leaving every other
// line of the principal's list in place.
func (c *Corrector) ensureTask(ctx context.Context, definition ResourceDefinition) error {
	store := c.Inspector.Crontabs
	table, err := store.Read(ctx, definition.Task.Principal)
	if err != nil {
		return err
	}
	updated, changed := table.Ensure(definition.Task)
	if !changed {
		return nil
	}
	return store.Write(ctx, definition.Task.Principal, updated)
}

// removeTask deletes every line matching the task from the principal's
// list. The list is rewritten only when a line was removed.
func (c *Corrector) removeTask(ctx context.Context, definition ResourceDefinition) error {
	store := c.Inspector.Crontabs
	table, err := store.Read(ctx, definition.Task.Principal)
	if err != nil {
		return err
	}
	updated, changed := table.Remove(definition.Task)
	if !changed {
		return nil
	}
	return store.Write(ctx, definition.Task.Principal, updated)
}

func (c *Corrector) installGrant(ctx context.Context, definition ResourceDefinition) error {
	if c.Grants != nil {
		if err := c.Grants.Validate(ctx, definition.Content); err != nil {
			return err
		}
	}
	return c.writeContent(definition)
}

// verify re-inspects and fails when the issue's axis is still wrong.
func (c *Corrector) verify(ctx context.Context, definition ResourceDefinition, issue Issue) error {
	observed := c.Inspector.Inspect(ctx, definition)
	if observed.InspectionError != nil {
		return observed.InspectionError
	}
	if issue.Kind == IssueMissing {
		if !observed.Exists {
			return errors.New("still absent after correction")
		}
		return nil
	}
	for _, remaining := range Diff(definition, observed) {
		if remaining.Kind == issue.Kind {
			return fmt.Errorf("still %s after correction: expected %s, observed %s", issue.Kind, remaining.Expected, remaining.Observed)
		}
	}
	return nil
}
