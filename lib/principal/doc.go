// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package principal resolves the Unix accounts and groups the appliance
// runs under.
//
// # Resolution
//
// The reconciler compares ownership by name, but the kernel stores
// numeric ids. A [Resolver] translates in both directions: names to
// ids when the expected owner is known, ids back to names when
// reporting what was observed. [System] uses os/user (NSS on a real
// host); [Static] is a fixed table for tests.
//
// # Install user
//
// The appliance software lives in the home directory of one ordinary
// login account, usually "pi" on a Raspberry Pi. [DetectInstallUser]
// picks that account from, in order: explicit configuration, the
// legacy installer settings file, the SUDO_USER or USER environment
// variables, the account with uid 1000, the first account with uid at
// least 1000 and a home directory below /home, and finally root.
package principal
