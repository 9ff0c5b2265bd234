// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCatalogAccepts(t *testing.T) {
	catalog := []ResourceDefinition{
		directory("install", "/srv/e3dc", 0o755),
		configFile(),
		startScript(),
		autostart(),
		grant(),
	}
	if err := ValidateCatalog(catalog); err != nil {
		t.Fatalf("ValidateCatalog: %v", err)
	}
}

func TestValidateCatalogRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ResourceDefinition)
		base    func() ResourceDefinition
		wantErr string
	}{
		{"empty id", func(d *ResourceDefinition) { d.ID = "" }, configFile, "empty id"},
		{"unknown kind", func(d *ResourceDefinition) { d.Kind = "socket" }, configFile, "unknown kind"},
		{"relative path", func(d *ResourceDefinition) { d.Path = "e3dc.config.txt" }, configFile, "not absolute"},
		{"unclean path", func(d *ResourceDefinition) { d.Path = "/srv/../etc/passwd" }, configFile, "not absolute and clean"},
		{"no owner", func(d *ResourceDefinition) { d.Owner = "" }, configFile, "owner and group"},
		{"mode type bits", func(d *ResourceDefinition) { d.Mode |= 1 << 31 }, configFile, "beyond rwx"},
		{"directory content", func(d *ResourceDefinition) { d.Content = []byte("x") }, func() ResourceDefinition { return directory("d", "/d", 0o755) }, "cannot declare content"},
		{"grant without content", func(d *ResourceDefinition) { d.Content = nil }, grant, "without content"},
		{"grant writable", func(d *ResourceDefinition) { d.Mode = 0o664 }, grant, "writable"},
		{"grant dotted name", func(d *ResourceDefinition) { d.Path = "/etc/sudoers.d/e3dc.conf" }, grant, "sudo ignores"},
		{"task bad schedule", func(d *ResourceDefinition) { d.Task.Schedule = "every day" }, autostart, "periodic task"},
		{"task no principal", func(d *ResourceDefinition) { d.Task.Principal = "" }, autostart, "empty principal"},
		{"absent required", func(d *ResourceDefinition) { d.Required = true }, rootAutostart, "cannot be required"},
		{"absent file", func(d *ResourceDefinition) { d.Absent = true }, configFile, "only periodic tasks"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			definition := test.base()
			test.mutate(&definition)
			err := ValidateCatalog([]ResourceDefinition{definition})
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Fatalf("ValidateCatalog = %v, want ErrInvalidCatalog", err)
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error %q does not contain %q", err, test.wantErr)
			}
		})
	}
}

func TestValidateCatalogReportsEveryProblem(t *testing.T) {
	broken := configFile()
	broken.Path = "relative"
	err := ValidateCatalog([]ResourceDefinition{configFile(), configFile(), broken})
	if err == nil {
		t.Fatal("ValidateCatalog accepted duplicates")
	}
	message := err.Error()
	if !strings.Contains(message, "duplicate id") || !strings.Contains(message, "not absolute") {
		t.Errorf("error %q does not list every problem", message)
	}
}

func TestValidateCatalogRejectsConflictingTasks(t *testing.T) {
	absentForPi := rootAutostart()
	absentForPi.ID = "pi-autostart-absent"
	absentForPi.Task.Principal = "pi"

	err := ValidateCatalog([]ResourceDefinition{autostart(), rootAutostart(), absentForPi})
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("ValidateCatalog = %v, want ErrInvalidCatalog", err)
	}
	if !strings.Contains(err.Error(), "already declared by autostart") {
		t.Errorf("error %q does not name the conflicting resource", err)
	}
	if strings.Contains(err.Error(), "root-autostart") {
		t.Errorf("root's list was reported as conflicting: %q", err)
	}
}
