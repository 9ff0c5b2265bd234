// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// digest returns a short BLAKE3 identifier for content shown in
// reports. Equality decisions compare the bytes, not the digest.
func digest(data []byte) string {
	sum := blake3.Sum256(data)
	return "blake3:" + hex.EncodeToString(sum[:8])
}
