// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/e3dc-control/installer/lib/crontab"
	"github.com/e3dc-control/installer/lib/principal"
	"github.com/e3dc-control/installer/lib/reconcile"
	"github.com/e3dc-control/installer/lib/sudoers"
)

const (
	// InstallDirName is the checkout below the install user's home.
	InstallDirName = "E3DC-Control"

	DefaultWebRoot = "/var/www/html"

	// GrantFileName is the sudoers drop-in. No dots: sudo skips those.
	GrantFileName = "010_e3dc-control"

	ScreenBinary = "/usr/bin/screen"
	PHPBinary    = "/usr/bin/php"

	// ScreenSession names the screen session the controller runs in.
	ScreenSession = "E3DC"

	AutostartTag     = "E3DC-Control Autostart"
	HistoryBackupTag = "E3DC-Control History Backup"
)

// Environment holds the host-specific values the catalog is built
// from. Zero fields take the defaults documented on each.
type Environment struct {
	InstallUser string
	HomeDir     string

	// InstallDir defaults to HomeDir/E3DC-Control.
	InstallDir string

	// WebRoot defaults to /var/www/html.
	WebRoot string

	// WebGroup defaults to www-data.
	WebGroup string

	// SudoersDir defaults to /etc/sudoers.d.
	SudoersDir string
}

// WithDefaults fills zero fields.
func (e Environment) WithDefaults() Environment {
	if e.HomeDir == "" && e.InstallUser != "" {
		if e.InstallUser == principal.RootName {
			e.HomeDir = "/root"
		} else {
			e.HomeDir = filepath.Join("/home", e.InstallUser)
		}
	}
	if e.InstallDir == "" {
		e.InstallDir = filepath.Join(e.HomeDir, InstallDirName)
	}
	if e.WebRoot == "" {
		e.WebRoot = DefaultWebRoot
	}
	if e.WebGroup == "" {
		e.WebGroup = principal.WebGroupName
	}
	if e.SudoersDir == "" {
		e.SudoersDir = sudoers.DefaultDirectory
	}
	return e
}

// StartScript is the controller's launcher.
func (e Environment) StartScript() string {
	return filepath.Join(e.InstallDir, "E3DC.sh")
}

// Resources returns the appliance catalog in declaration order, which
// is also the correction order: directories come before the files
// inside them.
func Resources(environment Environment) []reconcile.ResourceDefinition {
	env := environment.WithDefaults()
	user, web := env.InstallUser, env.WebGroup

	path := func(kind reconcile.Kind, id, location, owner, group string, mode fs.FileMode, required bool, description string) reconcile.ResourceDefinition {
		return reconcile.ResourceDefinition{
			ID:          id,
			Kind:        kind,
			Path:        location,
			Owner:       owner,
			Group:       group,
			Mode:        mode,
			Required:    required,
			Description: description,
		}
	}

	home := path(reconcile.KindDirectory, "home-dir", env.HomeDir, user, user, 0o005, true,
		"home directory traversable by the web server")
	home.ModeMatch = reconcile.ModeIncludes

	webPaths := path(reconcile.KindFile, "web-paths", filepath.Join(env.WebRoot, "e3dc_paths.json"), user, web, 0o664, true,
		"paths the PHP pages use to find the installation")
	webPaths.Content = WebPathsContent(env)

	resources := []reconcile.ResourceDefinition{
		home,
		path(reconcile.KindDirectory, "install-dir", env.InstallDir, user, user, 0o755, true,
			"controller installation"),
		path(reconcile.KindDirectory, "install-logs", filepath.Join(env.InstallDir, "logs"), user, web, 0o775, false,
			"controller and installer logs"),
		path(reconcile.KindFile, "installer-config", filepath.Join(env.InstallDir, "Installer", "installer_config.json"), user, web, 0o664, false,
			"installer settings"),
		path(reconcile.KindFile, "config-main", filepath.Join(env.InstallDir, "e3dc.config.txt"), user, web, 0o664, false,
			"controller configuration, editable from the web UI"),
		path(reconcile.KindFile, "config-wallbox", filepath.Join(env.InstallDir, "e3dc.wallbox.txt"), user, web, 0o664, false,
			"wallbox schedule, editable from the web UI"),
		path(reconcile.KindFile, "config-tariff", filepath.Join(env.InstallDir, "e3dc.strompreis.txt"), user, web, 0o664, false,
			"electricity tariff table, editable from the web UI"),
		path(reconcile.KindExecutableFile, "start-script", env.StartScript(), user, user, 0o755, false,
			"controller launcher"),
		path(reconcile.KindExecutableFile, "plot-script", filepath.Join(env.InstallDir, "plot_soc_changes.py"), user, web, 0o775, false,
			"diagram generator, run by the web UI"),
		path(reconcile.KindDirectory, "web-root", env.WebRoot, user, web, 0o775, true,
			"web UI document root"),
		path(reconcile.KindDirectory, "web-tmp", filepath.Join(env.WebRoot, "tmp"), user, web, 0o777, true,
			"web UI scratch space for diagrams and history backups"),
		webPaths,
		{
			ID:          "cron-autostart",
			Kind:        reconcile.KindPeriodicTask,
			Task:        AutostartEntry(env),
			Required:    true,
			Description: "start the controller in a screen session at boot",
		},
		{
			ID:          "cron-history-backup",
			Kind:        reconcile.KindPeriodicTask,
			Task:        HistoryBackupEntry(env),
			Description: "nightly backup of the web UI history",
		},
		{
			ID:          "sudo-web-restart",
			Kind:        reconcile.KindPrivilegeGrant,
			Path:        filepath.Join(env.SudoersDir, GrantFileName),
			Owner:       principal.RootName,
			Group:       principal.RootName,
			Mode:        sudoers.Mode,
			Content:     WebRestartGrant(env).Render(),
			Required:    true,
			Description: "lets the web UI restart the controller as the install user",
		},
	}

	// Earlier installers sometimes wrote the autostart line into root's
	// list, which starts a second controller as root.
	if user != principal.RootName {
		stray := AutostartEntry(env)
		stray.Principal = principal.RootName
		resources = append(resources, reconcile.ResourceDefinition{
			ID:          "cron-root-autostart",
			Kind:        reconcile.KindPeriodicTask,
			Task:        stray,
			Absent:      true,
			Description: "no second autostart of the controller from root's crontab",
		})
	}
	return resources
}

// Validate rejects an environment whose names cannot appear in a
// crontab list or a sudoers rule. Errors wrap
// reconcile.ErrInvalidCatalog.
func (e Environment) Validate() error {
	env := e.WithDefaults()
	var problems []error
	if err := crontab.ValidatePrincipal(env.InstallUser); err != nil {
		problems = append(problems, fmt.Errorf("install user: %w", err))
	}
	if err := WebRestartGrant(env).Validate(); err != nil {
		problems = append(problems, fmt.Errorf("web restart grant: %w", err))
	}
	for _, path := range []string{env.HomeDir, env.InstallDir, env.WebRoot, env.SudoersDir} {
		if !filepath.IsAbs(path) {
			problems = append(problems, fmt.Errorf("path %q is not absolute", path))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", reconcile.ErrInvalidCatalog, errors.Join(problems...))
}

// WebPathsContent renders e3dc_paths.json exactly as earlier
// installer releases wrote it (two-space indent, no trailing newline),
// so existing files compare equal.
func WebPathsContent(environment Environment) []byte {
	env := environment.WithDefaults()
	data, err := json.MarshalIndent(struct {
		InstallUser string `json:"install_user"`
		HomeDir     string `json:"home_dir"`
		InstallPath string `json:"install_path"`
	}{env.InstallUser, env.HomeDir, env.InstallDir}, "", "  ")
	if err != nil {
		// Three strings always marshal.
		panic(fmt.Sprintf("marshaling web paths: %v", err))
	}
	return data
}

// AutostartEntry clears the stop flag and launches the controller in a
// detached screen session once the network is up.
func AutostartEntry(environment Environment) crontab.Entry {
	env := environment.WithDefaults()
	return crontab.Entry{
		Principal: env.InstallUser,
		Schedule:  "@reboot",
		Command: fmt.Sprintf("sleep 10 && echo 0 > %s && %s -dmS %s %s",
			filepath.Join(env.InstallDir, "stop"), ScreenBinary, ScreenSession, env.StartScript()),
		Tag: AutostartTag,
	}
}

// HistoryBackupEntry runs the web UI's history backup at midnight.
func HistoryBackupEntry(environment Environment) crontab.Entry {
	env := environment.WithDefaults()
	return crontab.Entry{
		Principal: env.InstallUser,
		Schedule:  "0 0 * * *",
		Command:   fmt.Sprintf("%s %s > /dev/null 2>&1", PHPBinary, filepath.Join(env.WebRoot, "backup_history.php")),
		Tag:       HistoryBackupTag,
	}
}

// WebRestartGrant lets the web server start the controller's screen
// session as the install user.
func WebRestartGrant(environment Environment) sudoers.Grant {
	env := environment.WithDefaults()
	return sudoers.Grant{
		Principal: env.WebGroup,
		RunAs:     env.InstallUser,
		Commands:  []string{fmt.Sprintf("%s -dmS %s %s", ScreenBinary, ScreenSession, env.StartScript())},
		Comment:   "Managed by e3dc-installer: web UI restart of the E3DC-Control screen session",
	}
}

