// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/e3dc-control/installer/lib/crontab"
	"github.com/e3dc-control/installer/lib/hostfs"
	"github.com/e3dc-control/installer/lib/principal"
)

func TestInspectFile(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "/srv/e3dc/config.txt", "wallbox = true\n", 0o664, uidAlice, gidWeb)

	observed := f.inspector.Inspect(context.Background(), configFile())
	if observed.InspectionError != nil {
		t.Fatalf("InspectionError = %v", observed.InspectionError)
	}
	if !observed.Exists {
		t.Fatal("Exists = false")
	}
	if observed.Owner != "alice" || observed.Group != "www-data" {
		t.Errorf("ownership = %s:%s, want alice:www-data", observed.Owner, observed.Group)
	}
	if observed.Mode != 0o664 {
		t.Errorf("mode = %v, want 0664", observed.Mode)
	}
	if observed.Executable {
		t.Error("Executable = true for 0664")
	}
	if !observed.ContentMatches {
		t.Error("ContentMatches = false for a file without declared content")
	}
}

func TestInspectMissing(t *testing.T) {
	f := newFixture(t)
	observed := f.inspector.Inspect(context.Background(), configFile())
	if observed.Exists || observed.InspectionError != nil {
		t.Errorf("observed = %+v, want absent without error", observed)
	}
}

func TestInspectUnnamedOwner(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "/srv/e3dc/config.txt", "", 0o644, 4242, gidWeb)

	observed := f.inspector.Inspect(context.Background(), configFile())
	if observed.Owner != "4242" {
		t.Errorf("owner = %q, want numeric fallback", observed.Owner)
	}
}

func TestInspectErrors(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T, f *fixture)
		definition func() ResourceDefinition
		wantErr    string
	}{
		{
			name: "stat permission denied",
			setup: func(t *testing.T, f *fixture) {
				f.addFile(t, "/srv/e3dc/config.txt", "", 0o644, 0, gidWeb)
				f.fs.FailOn(hostfs.OpStat, "/srv/e3dc/config.txt", fs.ErrPermission)
			},
			definition: configFile,
			wantErr:    "permission denied",
		},
		{
			name:  "unknown owner",
			setup: func(t *testing.T, f *fixture) {},
			definition: func() ResourceDefinition {
				definition := configFile()
				definition.Owner = "mallory"
				return definition
			},
			wantErr: "resolving owner",
		},
		{
			name: "directory where file expected",
			setup: func(t *testing.T, f *fixture) {
				f.addDir(t, "/srv/e3dc/config.txt", 0o755, 0, 0)
			},
			definition: configFile,
			wantErr:    "is a directory",
		},
		{
			name: "file where directory expected",
			setup: func(t *testing.T, f *fixture) {
				f.addFile(t, "/srv/e3dc", "", 0o644, uidPi, gidPi)
			},
			definition: func() ResourceDefinition { return directory("install", "/srv/e3dc", 0o755) },
			wantErr:    "not a directory",
		},
		{
			name: "unreadable grant",
			setup: func(t *testing.T, f *fixture) {
				f.addFile(t, "/etc/sudoers.d/010_e3dc", "x", 0o400, 0, 0)
				f.fs.FailOn(hostfs.OpRead, "/etc/sudoers.d/010_e3dc", fs.ErrPermission)
			},
			definition: grant,
			wantErr:    "permission denied",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t)
			test.setup(t, f)
			definition := test.definition()

			observed := f.inspector.Inspect(context.Background(), definition)
			if observed.Exists {
				t.Error("Exists = true despite inspection error")
			}
			var inspectionError *InspectionError
			if !errors.As(observed.InspectionError, &inspectionError) {
				t.Fatalf("InspectionError = %v, want *InspectionError", observed.InspectionError)
			}
			if inspectionError.ResourceID != definition.ID {
				t.Errorf("ResourceID = %q, want %q", inspectionError.ResourceID, definition.ID)
			}
			if !strings.Contains(observed.InspectionError.Error(), test.wantErr) {
				t.Errorf("error %q does not contain %q", observed.InspectionError, test.wantErr)
			}
			if kinds := issueKinds(Diff(definition, observed)); len(kinds) != 1 || kinds[0] != IssueMissing {
				t.Errorf("Diff kinds = %v, want [missing]", kinds)
			}
		})
	}
}

func TestInspectUnknownGroup(t *testing.T) {
	f := newFixture(t)
	definition := configFile()
	definition.Group = "nogroup-here"
	observed := f.inspector.Inspect(context.Background(), definition)
	if !errors.Is(observed.InspectionError, principal.ErrUnknown) {
		t.Errorf("InspectionError = %v, want principal.ErrUnknown", observed.InspectionError)
	}
}

func TestInspectContent(t *testing.T) {
	f := newFixture(t)
	definition := grant()
	f.addFile(t, definition.Path, string(definition.Content), 0o400, 0, 0)

	observed := f.inspector.Inspect(context.Background(), definition)
	if !observed.ContentMatches {
		t.Error("ContentMatches = false for identical content")
	}
	if !strings.HasPrefix(observed.ContentDigest, "blake3:") {
		t.Errorf("ContentDigest = %q", observed.ContentDigest)
	}

	f.addFile(t, definition.Path, "www-data ALL=(ALL) NOPASSWD: ALL\n", 0o400, 0, 0)
	observed = f.inspector.Inspect(context.Background(), definition)
	if observed.ContentMatches {
		t.Error("ContentMatches = true after content changed")
	}
}

func TestInspectPeriodicTask(t *testing.T) {
	tests := []struct {
		name        string
		crontab     string
		wantExists  bool
		wantMatches bool
	}{
		{"no crontab", "", false, false},
		{"other entries only", "@hourly /usr/local/bin/other\n", false, false},
		{"tagged", autostartTask.Line() + "\n", true, true},
		{"legacy untagged", "@reboot sleep 30 && /usr/bin/screen -dmS E3DC /srv/e3dc/E3DC.sh\n", true, true},
		{"drifted", "@reboot /home/pi/old/E3DC.sh # E3DC-Control Autostart\n", true, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			f := newFixture(t)
			if test.crontab != "" {
				table := crontab.Parse(test.crontab)
				if err := f.crontabs.Write(context.Background(), "pi", table); err != nil {
					t.Fatal(err)
				}
			}
			observed := f.inspector.Inspect(context.Background(), autostart())
			if observed.InspectionError != nil {
				t.Fatalf("InspectionError = %v", observed.InspectionError)
			}
			if observed.Exists != test.wantExists || (test.wantExists && observed.ContentMatches != test.wantMatches) {
				t.Errorf("observed = %+v, want exists %v matches %v", observed, test.wantExists, test.wantMatches)
			}
		})
	}
}

func TestInspectPeriodicTaskReadFailure(t *testing.T) {
	f := newFixture(t)
	if err := f.crontabs.Write(context.Background(), "pi", crontab.Parse(autostartTask.Line())); err != nil {
		t.Fatal(err)
	}
	f.fs.FailOn(hostfs.OpRead, spoolDir+"/pi", fs.ErrPermission)

	observed := f.inspector.Inspect(context.Background(), autostart())
	if observed.InspectionError == nil || observed.Exists {
		t.Fatalf("observed = %+v, want inspection error", observed)
	}
	if !IsPermission(observed.InspectionError) {
		t.Errorf("IsPermission(%v) = false", observed.InspectionError)
	}
}
