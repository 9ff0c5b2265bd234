// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the installer's YAML configuration.
//
// Configuration comes from a single file named by the --config flag
// (via [LoadFile]) or the E3DC_INSTALLER_CONFIG environment variable
// (via [Load]). There is no search path. Without either, commands run
// on [Default], which matches a stock Raspberry Pi OS host.
//
// Path fields expand ${HOME}, ${INSTALL_USER}, ${E3DC_HOME},
// ${E3DC_INSTALL}, and ${VAR:-default} after loading.
//
// Earlier installer releases recorded the install user in
// installer_config.json. [ReadLegacy] reads that file so an upgraded
// host keeps its owner without a YAML config.
package config
