// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit keeps the permanent record of what reconciliation
// found and changed on a host. [Open] appends JSON lines to the audit
// log (by default logs/permissions.log in the installation). The
// reconciliation engine writes one record per issue, one per
// correction attempt, and one summary per run; [Fanout] lets the same
// records reach the console logger too.
package audit
