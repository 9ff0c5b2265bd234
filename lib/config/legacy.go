// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/e3dc-control/installer/lib/hostfs"
)

// LegacyFileName is the settings file of earlier installer releases,
// kept in the Installer directory of the checkout.
const LegacyFileName = "installer_config.json"

// Legacy holds the fields of installer_config.json that still matter.
// Unknown keys are ignored.
type Legacy struct {
	InstallUser string `json:"install_user"`
}

// ParseLegacy decodes installer_config.json. Comments and trailing
// commas left by hand edits are tolerated.
func ParseLegacy(data []byte) (Legacy, error) {
	var legacy Legacy
	if err := json.Unmarshal(jsonc.ToJSON(data), &legacy); err != nil {
		return Legacy{}, fmt.Errorf("parsing %s: %w", LegacyFileName, err)
	}
	return legacy, nil
}

// LegacyPath returns where an installation at installDir keeps its
// installer_config.json.
func LegacyPath(installDir string) string {
	return filepath.Join(installDir, "Installer", LegacyFileName)
}

// ReadLegacy returns the first candidate file that exists. A missing
// candidate is skipped; an unreadable or malformed one is an error.
// found is false when no candidate exists.
func ReadLegacy(fsys hostfs.FS, candidates ...string) (legacy Legacy, path string, found bool, err error) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		data, readErr := fsys.ReadFile(candidate)
		if errors.Is(readErr, fs.ErrNotExist) {
			continue
		}
		if readErr != nil {
			return Legacy{}, candidate, false, fmt.Errorf("reading %s: %w", candidate, readErr)
		}
		parsed, parseErr := ParseLegacy(data)
		if parseErr != nil {
			return Legacy{}, candidate, false, fmt.Errorf("%s: %w", candidate, parseErr)
		}
		return parsed, candidate, true, nil
	}
	return Legacy{}, "", false, nil
}
