// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name:   "e3dc-installer",
		Logger: discardLogger,
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(context.Context, []string, *slog.Logger) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "permissions",
				Run: func(context.Context, []string, *slog.Logger) error {
					called = "permissions"
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"permissions"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "permissions" {
		t.Errorf("dispatched to %q, want %q", called, "permissions")
	}
}

func TestCommand_Execute_NestedSubcommandsAndParams(t *testing.T) {
	type fixParams struct {
		JSONOutput
		Yes    bool `flag:"yes,y" desc:"skip confirmation"`
		DryRun bool `flag:"dry-run" desc:"show the plan only"`
	}
	var params fixParams
	var receivedArgs []string
	var logged bytes.Buffer

	root := &Command{
		Name: "e3dc-installer",
		Logger: func() *slog.Logger {
			return slog.New(slog.NewTextHandler(&logged, nil))
		},
		Subcommands: []*Command{
			{
				Name: "permissions",
				Subcommands: []*Command{
					{
						Name:   "fix",
						Params: func() any { return &params },
						Run: func(_ context.Context, args []string, logger *slog.Logger) error {
							receivedArgs = args
							logger.Info("running")
							return nil
						},
					},
				},
			},
		},
	}

	err := root.Execute(context.Background(), []string{"permissions", "fix", "-y", "--json", "extra-arg"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !params.Yes || !params.OutputJSON || params.DryRun {
		t.Errorf("params = %+v", params)
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "extra-arg" {
		t.Errorf("args = %v, want [extra-arg]", receivedArgs)
	}
	if !strings.Contains(logged.String(), "command=permissions/fix") {
		t.Errorf("logger not scoped with command path: %q", logged.String())
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	type params struct {
		DryRun bool `flag:"dry-run"`
	}
	command := &Command{
		Name:   "fix",
		Params: func() any { return &params{} },
		Run:    func(context.Context, []string, *slog.Logger) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--dry-rnu"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --dry-run") {
		t.Errorf("error = %q, want suggestion for --dry-run", err)
	}
	if !strings.Contains(err.Error(), "--help") {
		t.Errorf("error = %q, should point to --help", err)
	}
	var commandError *CommandError
	if !errors.As(err, &commandError) || commandError.Category != CategoryValidation {
		t.Errorf("error %v is not a validation error", err)
	}
}

func TestCommand_Execute_UnknownSubcommand(t *testing.T) {
	root := &Command{
		Name:   "e3dc-installer",
		Stderr: &bytes.Buffer{},
		Subcommands: []*Command{
			{Name: "permissions"},
			{Name: "version"},
		},
	}

	err := root.Execute(context.Background(), []string{"permisions"})
	if err == nil || !strings.Contains(err.Error(), `did you mean "permissions"`) {
		t.Errorf("error = %v, want suggestion for permissions", err)
	}

	err = root.Execute(context.Background(), []string{"zzzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %v, want no suggestion", err)
	}
}

func TestCommand_Execute_HelpAndNoArgs(t *testing.T) {
	var help bytes.Buffer
	root := &Command{
		Name:   "e3dc-installer",
		Stderr: &help,
		Subcommands: []*Command{
			{Name: "permissions", Summary: "Check and repair file ownership and modes"},
		},
	}

	for _, helpArg := range []string{"-h", "--help", "help"} {
		if err := root.Execute(context.Background(), []string{helpArg}); err != nil {
			t.Errorf("Execute(%q) error: %v", helpArg, err)
		}
	}
	if !strings.Contains(help.String(), "Check and repair file ownership and modes") {
		t.Errorf("help output = %q", help.String())
	}

	err := root.Execute(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %v, want subcommand required", err)
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	type params struct {
		JSONOutput
		Yes bool `flag:"yes,y" desc:"apply without asking"`
	}
	command := &Command{
		Name:        "fix",
		Description: "Repair ownership, modes, crontab entries, and sudo grants.",
		Usage:       "e3dc-installer permissions fix [flags]",
		Params:      func() any { return &params{} },
		Examples: []Example{
			{Description: "Repair without prompting", Command: "sudo e3dc-installer permissions fix --yes"},
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"Repair ownership",
		"Usage:",
		"e3dc-installer permissions fix [flags]",
		"Flags:",
		"--json",
		"-y, --yes",
		"Examples:",
		"# Repair without prompting",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_OutInherited(t *testing.T) {
	var out bytes.Buffer
	root := &Command{Name: "e3dc-installer", Stdout: &out}
	child := &Command{Name: "permissions", parent: root}
	leaf := &Command{Name: "check", parent: child}

	if leaf.Out() != &out {
		t.Error("leaf did not inherit Stdout")
	}
	if got := leaf.fullName(); got != "e3dc-installer permissions check" {
		t.Errorf("fullName() = %q", got)
	}
	if got := leaf.path(); got != "permissions/check" {
		t.Errorf("path() = %q", got)
	}
}
