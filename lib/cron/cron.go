// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package cron

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Reboot is the nickname for "once when cron starts".
const Reboot = "@reboot"

// ErrNoNextRun is returned by Next for @reboot schedules.
var ErrNoNextRun = errors.New("cron: schedule has no calendar occurrence")

var nicknames = map[string]string{
	"@yearly":   "0 0 1 1 *",
	"@annually": "0 0 1 1 *",
	"@monthly":  "0 0 1 * *",
	"@weekly":   "0 0 * * 0",
	"@daily":    "0 0 * * *",
	"@midnight": "0 0 * * *",
	"@hourly":   "0 * * * *",
}

var monthNames = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var dayNames = map[string]int{
	"sun": 0, "mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6,
}

// Schedule represents a parsed cron expression. Use Parse to create
// one from a string, then call Next to compute the next matching time.
type Schedule struct {
	expression string
	atBoot     bool

	minutes     bitset64
	hours       bitset64
	daysOfMonth bitset64
	months      bitset64
	daysOfWeek  bitset64

	// Day fields that were not "*" switch day matching to OR.
	daysOfMonthRestricted bool
	daysOfWeekRestricted  bool
}

// bitset64 uses a uint64 as a compact set of integers 0-63.
type bitset64 uint64

func (b bitset64) has(value int) bool { return b&(1<<uint(value)) != 0 }
func (b *bitset64) set(value int)     { *b |= 1 << uint(value) }

// Parse parses a five-field expression or a nickname. Returns an
// error if the expression is malformed or contains out-of-range
// values.
func Parse(expression string) (Schedule, error) {
	trimmed := strings.TrimSpace(expression)
	if strings.HasPrefix(trimmed, "@") {
		nickname := strings.ToLower(trimmed)
		if nickname == Reboot {
			return Schedule{expression: trimmed, atBoot: true}, nil
		}
		expanded, ok := nicknames[nickname]
		if !ok {
			return Schedule{}, fmt.Errorf("cron: unknown nickname %q", trimmed)
		}
		schedule, err := Parse(expanded)
		if err != nil {
			return Schedule{}, err
		}
		schedule.expression = trimmed
		return schedule, nil
	}

	fields := strings.Fields(trimmed)
	if len(fields) != 5 {
		return Schedule{}, fmt.Errorf("cron: expected 5 fields, got %d", len(fields))
	}

	minutes, err := parseField(fields[0], 0, 59, nil)
	if err != nil {
		return Schedule{}, fmt.Errorf("cron: minute field: %w", err)
	}
	hours, err := parseField(fields[1], 0, 23, nil)
	if err != nil {
		return Schedule{}, fmt.Errorf("cron: hour field: %w", err)
	}
	daysOfMonth, err := parseField(fields[2], 1, 31, nil)
	if err != nil {
		return Schedule{}, fmt.Errorf("cron: day-of-month field: %w", err)
	}
	months, err := parseField(fields[3], 1, 12, monthNames)
	if err != nil {
		return Schedule{}, fmt.Errorf("cron: month field: %w", err)
	}
	daysOfWeek, err := parseField(fields[4], 0, 7, dayNames)
	if err != nil {
		return Schedule{}, fmt.Errorf("cron: day-of-week field: %w", err)
	}
	if daysOfWeek.has(7) {
		daysOfWeek.set(0)
	}

	return Schedule{
		expression:            strings.Join(fields, " "),
		minutes:               minutes,
		hours:                 hours,
		daysOfMonth:           daysOfMonth,
		months:                months,
		daysOfWeek:            daysOfWeek,
		daysOfMonthRestricted: !strings.HasPrefix(fields[2], "*"),
		daysOfWeekRestricted:  !strings.HasPrefix(fields[4], "*"),
	}, nil
}

// String returns the expression in normalized form: nicknames as
// written, five-field expressions with single spaces.
func (s Schedule) String() string { return s.expression }

// AtBoot reports whether this is an @reboot schedule.
func (s Schedule) AtBoot() bool { return s.atBoot }

// Next returns the earliest time strictly after t that matches the
// schedule, in t's location.
//
// Returns ErrNoNextRun for @reboot, and an error if no matching time
// can be found within 4 years of t (impossible schedules like Feb 31).
func (s Schedule) Next(t time.Time) (time.Time, error) {
	if s.atBoot {
		return time.Time{}, ErrNoNextRun
	}
	location := t.Location()

	// Start from the next minute after t, with seconds/nanos zeroed.
	t = t.Truncate(time.Minute).Add(time.Minute)

	// Search limit: 4 years covers all leap year cycles.
	limit := t.AddDate(4, 0, 0)

	for t.Before(limit) {
		if !s.months.has(int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, location)
			continue
		}
		if !s.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, location)
			continue
		}
		if !s.hours.has(t.Hour()) {
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, location)
			continue
		}
		if !s.minutes.has(t.Minute()) {
			t = t.Add(time.Minute)
			continue
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("cron: no matching time within 4 years of %s", t.Format(time.RFC3339))
}

func (s Schedule) dayMatches(t time.Time) bool {
	dayOfMonth := s.daysOfMonth.has(t.Day())
	dayOfWeek := s.daysOfWeek.has(int(t.Weekday()))
	if s.daysOfMonthRestricted && s.daysOfWeekRestricted {
		return dayOfMonth || dayOfWeek
	}
	return dayOfMonth && dayOfWeek
}

// parseField parses a single cron field into a bitset. The field may
// contain comma-separated terms, each of which is a wildcard, value,
// range, or stepped range/wildcard. names maps lowercase three-letter
// names to values for the month and day-of-week fields.
func parseField(field string, minimum, maximum int, names map[string]int) (bitset64, error) {
	var result bitset64
	for _, term := range strings.Split(field, ",") {
		bits, err := parseTerm(term, minimum, maximum, names)
		if err != nil {
			return 0, err
		}
		result |= bits
	}
	if result == 0 {
		return 0, fmt.Errorf("field %q produces empty set", field)
	}
	return result, nil
}

// parseTerm parses a single term: *, */N, V, V-V, V-V/N.
func parseTerm(term string, minimum, maximum int, names map[string]int) (bitset64, error) {
	parts := strings.SplitN(term, "/", 2)
	rangeExpression := parts[0]
	step := 1
	if len(parts) == 2 {
		parsed, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("invalid step %q: %w", parts[1], err)
		}
		if parsed <= 0 {
			return 0, fmt.Errorf("step must be positive, got %d", parsed)
		}
		step = parsed
	}

	var rangeStart, rangeEnd int
	if rangeExpression == "*" {
		rangeStart = minimum
		rangeEnd = maximum
	} else if dashIndex := strings.IndexByte(rangeExpression, '-'); dashIndex >= 0 {
		var err error
		rangeStart, err = parseValue(rangeExpression[:dashIndex], names)
		if err != nil {
			return 0, fmt.Errorf("invalid range start: %w", err)
		}
		rangeEnd, err = parseValue(rangeExpression[dashIndex+1:], names)
		if err != nil {
			return 0, fmt.Errorf("invalid range end: %w", err)
		}
		if rangeStart > rangeEnd {
			return 0, fmt.Errorf("range start %d > end %d", rangeStart, rangeEnd)
		}
	} else {
		value, err := parseValue(rangeExpression, names)
		if err != nil {
			return 0, err
		}
		rangeStart = value
		rangeEnd = value
		// "V/N" steps from V to the end of the field.
		if len(parts) == 2 {
			rangeEnd = maximum
		}
	}

	if rangeStart < minimum || rangeEnd > maximum {
		return 0, fmt.Errorf("value out of range [%d-%d]: got %d-%d", minimum, maximum, rangeStart, rangeEnd)
	}

	var result bitset64
	for value := rangeStart; value <= rangeEnd; value += step {
		result.set(value)
	}
	return result, nil
}

func parseValue(text string, names map[string]int) (int, error) {
	if value, ok := names[strings.ToLower(text)]; ok {
		return value, nil
	}
	value, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", text)
	}
	return value, nil
}
