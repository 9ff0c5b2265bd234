// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package sudoers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/e3dc-control/installer/lib/command"
)

// Mode is the permission of an installed drop-in: owner read-only.
const Mode fs.FileMode = 0o400

// DefaultDirectory is where sudo includes drop-ins from.
const DefaultDirectory = "/etc/sudoers.d"

// Grant is one passwordless sudo rule.
type Grant struct {
	// Principal may run the commands.
	Principal string

	// RunAs is the target user. Empty means root.
	RunAs string

	// Commands are absolute command lines, arguments included.
	Commands []string

	// Comment is written above the rule.
	Comment string
}

// Validate rejects grants that would render an unsafe or unparsable
// rule.
func (g Grant) Validate() error {
	if !validName(g.Principal) {
		return fmt.Errorf("invalid principal %q", g.Principal)
	}
	if g.RunAs != "" && !validName(g.RunAs) {
		return fmt.Errorf("invalid run-as user %q", g.RunAs)
	}
	if len(g.Commands) == 0 {
		return errors.New("grant has no commands")
	}
	for _, commandLine := range g.Commands {
		if !strings.HasPrefix(commandLine, "/") {
			return fmt.Errorf("command %q is not an absolute path", commandLine)
		}
		// "," separates commands and ":" separates tags; "ALL" would
		// widen the grant.
		if strings.ContainsAny(commandLine, ",:\n\\") || strings.Contains(commandLine, "ALL") {
			return fmt.Errorf("command %q contains characters not allowed in a grant", commandLine)
		}
	}
	if strings.ContainsAny(g.Comment, "\n\r") {
		return errors.New("comment contains a line break")
	}
	return nil
}

// Render returns the drop-in content.
func (g Grant) Render() []byte {
	var builder strings.Builder
	if g.Comment != "" {
		builder.WriteString("# " + g.Comment + "\n")
	}
	runAs := g.RunAs
	if runAs == "" {
		runAs = "root"
	}
	fmt.Fprintf(&builder, "%s ALL=(%s) NOPASSWD: %s\n", g.Principal, runAs, strings.Join(g.Commands, ", "))
	return []byte(builder.String())
}

// ValidFileName reports whether sudo will read a drop-in named name.
func ValidFileName(name string) bool {
	if name == "" || name != filepath.Base(name) {
		return false
	}
	return !strings.Contains(name, ".") && !strings.HasSuffix(name, "~")
}

func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, "-") {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}

// Validator checks drop-in content before it is installed.
type Validator interface {
	Validate(ctx context.Context, content []byte) error
}

// Visudo validates content with "visudo -c -q -f".
type Visudo struct {
	Runner command.Runner

	// Binary is the visudo executable. Empty means "visudo" from PATH.
	Binary string

	// TempDir holds the scratch copy. Empty means os.TempDir().
	TempDir string
}

func (v *Visudo) Validate(ctx context.Context, content []byte) error {
	file, err := os.CreateTemp(v.TempDir, "e3dc-sudoers-*")
	if err != nil {
		return fmt.Errorf("creating scratch file for visudo: %w", err)
	}
	path := file.Name()
	defer os.Remove(path)

	if _, err := file.Write(content); err != nil {
		file.Close()
		return fmt.Errorf("writing scratch file for visudo: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing scratch file for visudo: %w", err)
	}

	binary := v.Binary
	if binary == "" {
		binary = "visudo"
	}
	if _, err := v.Runner.Run(ctx, command.Request{Name: binary, Args: []string{"-c", "-q", "-f", path}}); err != nil {
		return fmt.Errorf("sudoers syntax check failed: %w", err)
	}
	return nil
}
