// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package permissions implements "e3dc-installer permissions": check,
// fix, and list over the appliance catalog.
//
// Each invocation loads the config, resolves the install user (config,
// then the legacy installer_config.json, then SUDO_USER/USER and the
// account list), builds the catalog for that installation, and runs
// the reconciliation engine against the [Host]. "fix" holds the
// installation lock for the whole run and appends to the audit log.
package permissions
