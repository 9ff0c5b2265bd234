// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package cron parses crontab(5) schedule expressions and computes the
// next occurrence after a given time.
//
// Supported syntax:
//
//	┌───────────── minute (0-59)
//	│ ┌───────────── hour (0-23)
//	│ │ ┌───────────── day of month (1-31)
//	│ │ │ ┌───────────── month (1-12 or jan-dec)
//	│ │ │ │ ┌───────────── day of week (0-7 or sun-sat, 0 and 7 are Sunday)
//	│ │ │ │ │
//	* * * * *
//
// Each field supports single values, ranges (1-5), lists (1,3,5),
// steps (*/15, 1-30/5), and the wildcard. The nicknames @yearly,
// @annually, @monthly, @weekly, @daily, @midnight, and @hourly expand
// to their five-field equivalents. @reboot is accepted but has no
// calendar occurrence: [Schedule.Next] returns [ErrNoNextRun].
//
// As in Vixie cron, when both day of month and day of week are
// restricted a day matches if either field matches.
//
// Times are evaluated in the location of the time passed to Next,
// which for crontab entries is the host's local time.
package cron
