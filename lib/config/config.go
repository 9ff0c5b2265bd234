// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when no --config flag is
// given.
const EnvironmentVariable = "E3DC_INSTALLER_CONFIG"

// ErrNotConfigured is returned by [Load] when EnvironmentVariable is
// unset.
var ErrNotConfigured = errors.New(EnvironmentVariable + " environment variable not set")

// Crontab store modes.
const (
	// CrontabCommand edits lists through crontab(1).
	CrontabCommand = "command"

	// CrontabSpool rewrites the spool files directly. For hosts where
	// crontab(1) is unavailable, such as image builds.
	CrontabSpool = "spool"
)

// Config is the installer configuration.
type Config struct {
	// InstallUser owns the installation. Empty means detect: legacy
	// installer_config.json, then SUDO_USER/USER, then the first login
	// account.
	InstallUser string `yaml:"install_user"`

	// WebGroup is the web server's group.
	// Default: www-data
	WebGroup string `yaml:"web_group"`

	Paths    PathsConfig    `yaml:"paths"`
	Crontab  CrontabConfig  `yaml:"crontab"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Sudoers  SudoersConfig  `yaml:"sudoers"`
}

// PathsConfig configures host locations. Empty Home and Install are
// derived from the install user's account.
type PathsConfig struct {
	Home    string `yaml:"home"`
	Install string `yaml:"install"`

	// Default: /var/www/html
	WebRoot string `yaml:"web_root"`

	// Default: /etc/sudoers.d
	SudoersDir string `yaml:"sudoers_dir"`

	// LockDir holds the reconciliation lock file.
	// Default: /run/lock
	LockDir string `yaml:"lock_dir"`

	// AuditLog receives one JSON record per issue and correction.
	// Default: <install>/logs/permissions.log
	AuditLog string `yaml:"audit_log"`

	// Default: /var/spool/cron/crontabs
	CrontabSpool string `yaml:"crontab_spool"`

	// LegacyConfig is the installer_config.json of earlier installer
	// releases. Default: <install>/Installer/installer_config.json
	LegacyConfig string `yaml:"legacy_config"`
}

// CrontabConfig selects how per-user crontab lists are read and
// written.
type CrontabConfig struct {
	// Mode is "command" or "spool".
	// Default: command
	Mode string `yaml:"mode"`

	// Binary is the crontab(1) executable.
	// Default: crontab (found in PATH)
	Binary string `yaml:"binary"`
}

// TimeoutsConfig bounds external commands.
type TimeoutsConfig struct {
	// Command applies to each crontab or visudo invocation.
	// Default: 10s
	Command string `yaml:"command"`
}

// SudoersConfig configures privilege grant installation.
type SudoersConfig struct {
	// Validate runs visudo on a grant before installing it.
	// Default: true
	Validate bool `yaml:"validate"`

	// Visudo is the visudo executable.
	// Default: /usr/sbin/visudo
	Visudo string `yaml:"visudo"`
}

// Default returns the configuration used when no file is given, and
// the base values a file is merged into.
func Default() *Config {
	return &Config{
		WebGroup: "www-data",
		Paths: PathsConfig{
			WebRoot:      "/var/www/html",
			SudoersDir:   "/etc/sudoers.d",
			LockDir:      "/run/lock",
			CrontabSpool: "/var/spool/cron/crontabs",
		},
		Crontab: CrontabConfig{
			Mode:   CrontabCommand,
			Binary: "crontab",
		},
		Timeouts: TimeoutsConfig{
			Command: "10s",
		},
		Sudoers: SudoersConfig{
			Validate: true,
			Visudo:   "/usr/sbin/visudo",
		},
	}
}

// Load loads configuration from the file named by
// E3DC_INSTALLER_CONFIG. It returns ErrNotConfigured when the variable
// is unset; callers that can run on defaults check for it with
// errors.Is.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, ErrNotConfigured
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, merged over [Default].
// ${HOME}, ${INSTALL_USER}, ${E3DC_HOME}, ${E3DC_INSTALL}, and
// ${VAR:-default} are expanded in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME":         os.Getenv("HOME"),
		"INSTALL_USER": c.InstallUser,
	}

	c.Paths.Home = expandVars(c.Paths.Home, vars)
	vars["E3DC_HOME"] = c.Paths.Home

	c.Paths.Install = expandVars(c.Paths.Install, vars)
	vars["E3DC_INSTALL"] = c.Paths.Install

	c.Paths.WebRoot = expandVars(c.Paths.WebRoot, vars)
	c.Paths.SudoersDir = expandVars(c.Paths.SudoersDir, vars)
	c.Paths.LockDir = expandVars(c.Paths.LockDir, vars)
	c.Paths.AuditLog = expandVars(c.Paths.AuditLog, vars)
	c.Paths.CrontabSpool = expandVars(c.Paths.CrontabSpool, vars)
	c.Paths.LegacyConfig = expandVars(c.Paths.LegacyConfig, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. vars take precedence
// over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// CommandTimeout parses Timeouts.Command. Call Validate first.
func (c *Config) CommandTimeout() time.Duration {
	timeout, err := time.ParseDuration(c.Timeouts.Command)
	if err != nil || timeout <= 0 {
		return 10 * time.Second
	}
	return timeout
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.WebGroup == "" {
		errs = append(errs, fmt.Errorf("web_group is required"))
	}

	absolute := []struct {
		name     string
		value    string
		required bool
	}{
		{"paths.home", c.Paths.Home, false},
		{"paths.install", c.Paths.Install, false},
		{"paths.web_root", c.Paths.WebRoot, true},
		{"paths.sudoers_dir", c.Paths.SudoersDir, true},
		{"paths.lock_dir", c.Paths.LockDir, true},
		{"paths.audit_log", c.Paths.AuditLog, false},
		{"paths.crontab_spool", c.Paths.CrontabSpool, c.Crontab.Mode == CrontabSpool},
		{"paths.legacy_config", c.Paths.LegacyConfig, false},
	}
	for _, field := range absolute {
		switch {
		case field.value == "" && field.required:
			errs = append(errs, fmt.Errorf("%s is required", field.name))
		case field.value != "" && !filepath.IsAbs(field.value):
			errs = append(errs, fmt.Errorf("%s must be an absolute path, got %q", field.name, field.value))
		}
	}

	crontabModes := []string{CrontabCommand, CrontabSpool}
	if !slices.Contains(crontabModes, c.Crontab.Mode) {
		errs = append(errs, fmt.Errorf("crontab.mode must be one of: %v", crontabModes))
	}
	if c.Crontab.Mode == CrontabCommand && c.Crontab.Binary == "" {
		errs = append(errs, fmt.Errorf("crontab.binary is required in command mode"))
	}

	if timeout, err := time.ParseDuration(c.Timeouts.Command); err != nil {
		errs = append(errs, fmt.Errorf("timeouts.command: %w", err))
	} else if timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeouts.command must be positive, got %s", timeout))
	}

	if c.Sudoers.Validate && c.Sudoers.Visudo == "" {
		errs = append(errs, fmt.Errorf("sudoers.visudo is required when sudoers.validate is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
