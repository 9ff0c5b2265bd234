// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}
