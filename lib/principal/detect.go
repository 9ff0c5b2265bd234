// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package principal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// firstLoginUID is where Debian and Raspberry Pi OS start numbering
// ordinary accounts.
const firstLoginUID = 1000

// DetectInput collects the sources DetectInstallUser consults.
type DetectInput struct {
	// Configured is the install_user value from the YAML config.
	Configured string

	// Legacy is the install_user recorded by an earlier installer
	// run (installer_config.json).
	Legacy string

	// Getenv reads environment variables. Nil means os.Getenv.
	Getenv func(string) string

	// Accounts is the host's account list, typically ReadPasswd.
	Accounts []Account
}

// DetectInstallUser returns the account name the appliance software
// belongs to. It never fails: when nothing better is known it returns
// root.
func DetectInstallUser(input DetectInput) string {
	if name := strings.TrimSpace(input.Configured); name != "" {
		return name
	}
	if name := strings.TrimSpace(input.Legacy); name != "" {
		return name
	}

	getenv := input.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	// Under sudo, SUDO_USER names the operator who ran the installer.
	for _, variable := range []string{"SUDO_USER", "USER"} {
		if name := getenv(variable); name != "" && name != RootName {
			return name
		}
	}

	for _, account := range input.Accounts {
		if account.UID == firstLoginUID {
			return account.Name
		}
	}
	for _, account := range input.Accounts {
		if account.UID >= firstLoginUID && strings.HasPrefix(account.HomeDir, "/home/") {
			return account.Name
		}
	}
	return RootName
}

// ReadPasswd parses the passwd(5) file at path.
func ReadPasswd(path string) ([]Account, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParsePasswd(file)
}

// ParsePasswd parses passwd(5) lines. Blank lines, comments, and lines
// with fewer than six fields or non-numeric ids are skipped.
func ParsePasswd(reader io.Reader) ([]Account, error) {
	var accounts []Account
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// name:password:uid:gid:gecos:home:shell
		fields := strings.Split(line, ":")
		if len(fields) < 6 {
			continue
		}
		uid, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			continue
		}
		gid, err := strconv.ParseUint(fields[3], 10, 32)
		if err != nil {
			continue
		}
		accounts = append(accounts, Account{
			Name:    fields[0],
			UID:     uint32(uid),
			GID:     uint32(gid),
			HomeDir: fields[5],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading passwd: %w", err)
	}
	return accounts, nil
}
