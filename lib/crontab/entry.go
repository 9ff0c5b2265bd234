// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package crontab

import (
	"errors"
	"fmt"
	"strings"

	"github.com/e3dc-control/installer/lib/cron"
)

// Entry is one managed periodic task.
type Entry struct {
	// Principal owns the crontab list the entry lives in.
	Principal string

	// Schedule is a five-field expression or a nickname such as
	// @reboot.
	Schedule string

	Command string

	// Tag marks the line as managed. Free text without "#" or line
	// breaks.
	Tag string
}

// Line renders the canonical crontab line, without a trailing newline.
func (e Entry) Line() string {
	line := normalize(e.Schedule) + " " + normalize(e.Command)
	if e.Tag != "" {
		line += " # " + strings.TrimSpace(e.Tag)
	}
	return line
}

func (e Entry) String() string {
	return e.Principal + ": " + e.Line()
}

// Validate checks that the entry can be written without corrupting the
// list.
func (e Entry) Validate() error {
	if err := ValidatePrincipal(e.Principal); err != nil {
		return err
	}
	if _, err := cron.Parse(e.Schedule); err != nil {
		return fmt.Errorf("schedule %q: %w", e.Schedule, err)
	}
	if strings.TrimSpace(e.Command) == "" {
		return errors.New("empty command")
	}
	if strings.ContainsAny(e.Command, "\n\r") {
		return errors.New("command contains a line break")
	}
	if strings.ContainsAny(e.Tag, "#\n\r") {
		return fmt.Errorf("tag %q contains '#' or a line break", e.Tag)
	}
	return nil
}

// ValidatePrincipal rejects names that could escape the spool
// directory or be read as crontab(1) options.
func ValidatePrincipal(name string) error {
	if name == "" {
		return errors.New("empty principal")
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid principal %q", name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.', r == '$':
		default:
			return fmt.Errorf("invalid principal %q", name)
		}
	}
	return nil
}

// normalize collapses runs of whitespace to single spaces.
func normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
