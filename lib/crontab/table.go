// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package crontab

import (
	"strings"
)

// Table is a crontab list as an ordered sequence of raw lines. Tables
// are values: Ensure and Remove return a new Table and never modify
// the receiver.
type Table struct {
	lines []string
}

// Parse splits crontab content into lines. A trailing newline does not
// produce an empty last line.
func Parse(content string) Table {
	content = strings.TrimRight(content, "\n")
	if content == "" {
		return Table{}
	}
	lines := strings.Split(content, "\n")
	for index, line := range lines {
		lines[index] = strings.TrimRight(line, "\r")
	}
	return Table{lines: lines}
}

// Lines returns a copy of the raw lines.
func (t Table) Lines() []string {
	return append([]string(nil), t.lines...)
}

func (t Table) Len() int { return len(t.lines) }

// String renders the table with a trailing newline, which cron
// requires on the last entry. An empty table renders as "".
func (t Table) String() string {
	if len(t.lines) == 0 {
		return ""
	}
	return strings.Join(t.lines, "\n") + "\n"
}

// Match locates an entry in a table.
type Match struct {
	// Index is the line number (0-based).
	Index int

	// Line is the raw line as found.
	Line string

	// Exact is true when the line's schedule and command equal the
	// entry's. A tag match with a drifted schedule or command is not
	// exact.
	Exact bool
}

// Find locates e. Lines carrying e's tag take precedence; otherwise the
// first line with the same schedule and command matches.
func (t Table) Find(e Entry) (Match, bool) {
	schedule, command, tag := normalize(e.Schedule), normalize(e.Command), strings.TrimSpace(e.Tag)

	if tag != "" {
		for index, raw := range t.lines {
			parsed, ok := parseLine(raw)
			if !ok || parsed.tag != tag {
				continue
			}
			exact := parsed.schedule == schedule && parsed.command == command
			return Match{Index: index, Line: raw, Exact: exact}, true
		}
	}
	for index, raw := range t.lines {
		parsed, ok := parseLine(raw)
		if !ok {
			continue
		}
		if parsed.schedule == schedule && parsed.command == command {
			return Match{Index: index, Line: raw, Exact: true}, true
		}
	}
	return Match{}, false
}

// Ensure returns a table containing e. An exact match leaves the table
// unchanged. A drifted tagged line is replaced in place. Otherwise the
// canonical line is appended. changed reports whether the result
// differs from t.
func (t Table) Ensure(e Entry) (result Table, changed bool) {
	match, found := t.Find(e)
	if found && match.Exact {
		return t, false
	}
	lines := t.Lines()
	if found {
		lines[match.Index] = e.Line()
	} else {
		lines = append(lines, e.Line())
	}
	return Table{lines: lines}, true
}

// Remove returns a table without any line that Find would match for e.
func (t Table) Remove(e Entry) (result Table, changed bool) {
	current := t
	for {
		match, found := current.Find(e)
		if !found {
			return current, changed
		}
		lines := current.Lines()
		current = Table{lines: append(lines[:match.Index], lines[match.Index+1:]...)}
		changed = true
	}
}

type parsedLine struct {
	schedule string
	command  string
	tag      string
}

// parseLine splits a job line into schedule, command, and trailing tag.
// Blank lines, comments, and environment assignments are not jobs.
func parseLine(raw string) (parsedLine, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return parsedLine{}, false
	}

	var tag string
	if index := strings.LastIndex(line, "#"); index > 0 && (line[index-1] == ' ' || line[index-1] == '\t') {
		tag = strings.TrimSpace(line[index+1:])
		line = strings.TrimSpace(line[:index])
	}

	fields := strings.Fields(line)
	if strings.HasPrefix(fields[0], "@") {
		if len(fields) < 2 {
			return parsedLine{}, false
		}
		return parsedLine{schedule: fields[0], command: strings.Join(fields[1:], " "), tag: tag}, true
	}
	if isAssignment(fields[0]) || len(fields) < 6 {
		return parsedLine{}, false
	}
	return parsedLine{
		schedule: strings.Join(fields[:5], " "),
		command:  strings.Join(fields[5:], " "),
		tag:      tag,
	}, true
}

// isAssignment reports whether a line starts with NAME=value
// (MAILTO=, PATH=, SHELL=).
func isAssignment(field string) bool {
	index := strings.IndexByte(field, '=')
	if index <= 0 {
		return false
	}
	first := field[0]
	return (first >= 'A' && first <= 'Z') || (first >= 'a' && first <= 'z') || first == '_'
}
