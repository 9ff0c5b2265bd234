// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"context"
	"io/fs"
	"testing"

	"github.com/e3dc-control/installer/lib/crontab"
	"github.com/e3dc-control/installer/lib/hostfs"
	"github.com/e3dc-control/installer/lib/principal"
	"github.com/e3dc-control/installer/lib/sudoers"
)

const (
	uidPi    = 1000
	uidAlice = 1001
	gidPi    = 1000
	gidWeb   = 33
	spoolDir = "/var/spool/cron/crontabs"
)

type fixture struct {
	fs         *hostfs.Memory
	principals *principal.Static
	crontabs   *crontab.SpoolStore
	inspector  *Inspector
	corrector  *Corrector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	memory := hostfs.NewMemory()
	if err := memory.AddDir(spoolDir, 0o730, 0, 0); err != nil {
		t.Fatal(err)
	}
	resolver := principal.NewStatic().
		AddUser(principal.Account{Name: "pi", UID: uidPi, GID: gidPi, HomeDir: "/home/pi"}).
		AddUser(principal.Account{Name: "alice", UID: uidAlice, GID: uidAlice, HomeDir: "/home/alice"}).
		AddGroup("pi", gidPi).
		AddGroup(principal.WebGroupName, gidWeb)
	store := &crontab.SpoolStore{FS: memory, Principals: resolver, Directory: spoolDir}
	inspector := &Inspector{FS: memory, Principals: resolver, Crontabs: store}
	return &fixture{
		fs:         memory,
		principals: resolver,
		crontabs:   store,
		inspector:  inspector,
		corrector:  &Corrector{Inspector: inspector},
	}
}

func (f *fixture) addDir(t *testing.T, path string, perm fs.FileMode, uid, gid uint32) {
	t.Helper()
	if err := f.fs.AddDir(path, perm, uid, gid); err != nil {
		t.Fatalf("AddDir(%s): %v", path, err)
	}
}

func (f *fixture) addFile(t *testing.T, path, content string, perm fs.FileMode, uid, gid uint32) {
	t.Helper()
	if err := f.fs.AddFile(path, []byte(content), perm, uid, gid); err != nil {
		t.Fatalf("AddFile(%s): %v", path, err)
	}
}

func (f *fixture) stat(t *testing.T, path string) hostfs.FileInfo {
	t.Helper()
	info, err := f.fs.Stat(path)
	if err != nil {
		t.Fatalf("Stat(%s): %v", path, err)
	}
	return info
}

func (f *fixture) crontabLines(t *testing.T, name string) []string {
	t.Helper()
	table, err := f.crontabs.Read(context.Background(), name)
	if err != nil {
		t.Fatalf("reading crontab of %s: %v", name, err)
	}
	return table.Lines()
}

func (f *fixture) engine(catalog []ResourceDefinition, confirmer Confirmer) *Engine {
	return &Engine{
		Catalog:   catalog,
		Inspector: f.inspector,
		Corrector: f.corrector,
		Confirmer: confirmer,
	}
}

type validatorFunc func(ctx context.Context, content []byte) error

func (v validatorFunc) Validate(ctx context.Context, content []byte) error { return v(ctx, content) }

var autostartTask = crontab.Entry{
	Principal: "pi",
	Schedule:  "@reboot",
	Command:   "sleep 30 && /usr/bin/screen -dmS E3DC /srv/e3dc/E3DC.sh",
	Tag:       "E3DC-Control Autostart",
}

var webRestartGrant = sudoers.Grant{
	Principal: principal.WebGroupName,
	RunAs:     "pi",
	Commands:  []string{"/usr/bin/screen -dmS E3DC /srv/e3dc/E3DC.sh"},
}

func directory(id, path string, mode fs.FileMode) ResourceDefinition {
	return ResourceDefinition{
		ID: id, Kind: KindDirectory, Path: path,
		Owner: "pi", Group: "pi", Mode: mode, Required: true,
	}
}

// configFile is a required root:www-data 0644 file.
func configFile() ResourceDefinition {
	return ResourceDefinition{
		ID: "config", Kind: KindFile, Path: "/srv/e3dc/config.txt",
		Owner: principal.RootName, Group: principal.WebGroupName, Mode: 0o644, Required: true,
	}
}

// aliceConfig declares config.txt as alice:www-data 0664.
func aliceConfig() ResourceDefinition {
	return ResourceDefinition{
		ID: "config", Kind: KindFile, Path: "/srv/e3dc/config.txt",
		Owner: "alice", Group: principal.WebGroupName, Mode: 0o664, Required: true,
	}
}

func startScript() ResourceDefinition {
	return ResourceDefinition{
		ID: "start-script", Kind: KindExecutableFile, Path: "/srv/e3dc/E3DC.sh",
		Owner: "pi", Group: "pi", Mode: 0o755,
	}
}

func autostart() ResourceDefinition {
	return ResourceDefinition{ID: "autostart", Kind: KindPeriodicTask, Task: autostartTask, Required: true}
}

// rootAutostart declares the autostart line absent from root's list.
func rootAutostart() ResourceDefinition {
	task := autostartTask
	task.Principal = principal.RootName
	return ResourceDefinition{ID: "root-autostart", Kind: KindPeriodicTask, Task: task, Absent: true}
}

func grant() ResourceDefinition {
	return ResourceDefinition{
		ID: "sudo-web-restart", Kind: KindPrivilegeGrant, Path: "/etc/sudoers.d/010_e3dc",
		Owner: principal.RootName, Group: principal.RootName, Mode: sudoers.Mode,
		Content: webRestartGrant.Render(), Required: true,
	}
}

func issueKinds(issues []Issue) []IssueKind {
	kinds := make([]IssueKind, 0, len(issues))
	for _, issue := range issues {
		kinds = append(kinds, issue.Kind)
	}
	return kinds
}
