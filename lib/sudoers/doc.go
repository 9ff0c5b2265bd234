// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package sudoers renders and validates sudoers(5) drop-in files.
//
// A [Grant] is a single NOPASSWD rule letting one principal run a
// fixed list of absolute command lines as another. Drop-ins are
// installed root:root with mode [Mode]; sudo ignores files in
// /etc/sudoers.d whose names contain a dot or end in "~", which
// [ValidFileName] rejects up front.
package sudoers
