// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog declares the resources an E3DC-Control appliance
// needs: the installation tree in the install user's home, the web
// UI's document root, the crontab entries that start the controller
// and back up history data, and the sudo grant that lets the web UI
// restart the controller.
//
// [Resources] is the single registration point. Adding a resource
// means adding an entry there; nothing is discovered at run time.
package catalog
