// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable source of the current time.
//
// Code that stamps reports or computes the next cron run takes a
// [Clock] instead of calling time.Now. Production wiring passes
// [Real]; tests pass [Fake] and move time with Set or Advance.
package clock
