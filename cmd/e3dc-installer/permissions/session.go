// Copyright 2026 The E3DC-Control Authors
// SPDX-License-Identifier: Apache-2.0

package permissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/e3dc-control/installer/lib/audit"
	"github.com/e3dc-control/installer/lib/catalog"
	"github.com/e3dc-control/installer/lib/config"
	"github.com/e3dc-control/installer/lib/crontab"
	"github.com/e3dc-control/installer/lib/principal"
	"github.com/e3dc-control/installer/lib/reconcile"
	"github.com/e3dc-control/installer/lib/sudoers"
)

// session is one command invocation's view of the host: the loaded
// configuration, the resolved installation, and an engine over its
// catalog.
type session struct {
	host        *Host
	config      *config.Config
	environment catalog.Environment
	catalog     []reconcile.ResourceDefinition
	crontabs    crontab.Store
	engine      *reconcile.Engine

	// userSource says how the install user was determined, for logs.
	userSource string
}

// loadConfig applies the --config flag, then E3DC_INSTALLER_CONFIG,
// then built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
		if errors.Is(err, config.ErrNotConfigured) {
			cfg, err = config.Default(), nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openSession(host *Host, configPath string, logger *slog.Logger) (*session, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	accounts, err := host.Accounts()
	if err != nil {
		logger.Warn("cannot read account list; install user detection falls back to the environment", "error", err)
	}

	installUser, source := resolveInstallUser(host, cfg, accounts, logger)
	if err := crontab.ValidatePrincipal(installUser); err != nil {
		return nil, fmt.Errorf("install user: %w", err)
	}

	homeDir := cfg.Paths.Home
	if homeDir == "" {
		if account, lookupErr := host.Principals.LookupUser(installUser); lookupErr == nil && account.HomeDir != "" {
			homeDir = account.HomeDir
		}
	}

	environment := catalog.Environment{
		InstallUser: installUser,
		HomeDir:     homeDir,
		InstallDir:  cfg.Paths.Install,
		WebRoot:     cfg.Paths.WebRoot,
		WebGroup:    cfg.WebGroup,
		SudoersDir:  cfg.Paths.SudoersDir,
	}.WithDefaults()
	if err := environment.Validate(); err != nil {
		return nil, err
	}

	var crontabs crontab.Store
	switch cfg.Crontab.Mode {
	case config.CrontabSpool:
		crontabs = &crontab.SpoolStore{FS: host.FS, Principals: host.Principals, Directory: cfg.Paths.CrontabSpool}
	default:
		crontabs = &crontab.CommandStore{Runner: host.Runner, Binary: cfg.Crontab.Binary}
	}

	inspector := &reconcile.Inspector{FS: host.FS, Principals: host.Principals, Crontabs: crontabs}
	corrector := &reconcile.Corrector{Inspector: inspector, Timeout: cfg.CommandTimeout()}
	if cfg.Sudoers.Validate {
		corrector.Grants = &sudoers.Visudo{Runner: host.Runner, Binary: cfg.Sudoers.Visudo}
	}

	resources := catalog.Resources(environment)
	logger.Debug("installation resolved",
		"install_user", installUser,
		"install_user_source", source,
		"home", environment.HomeDir,
		"install", environment.InstallDir,
		"resources", len(resources),
	)

	return &session{
		host:        host,
		config:      cfg,
		environment: environment,
		catalog:     resources,
		crontabs:    crontabs,
		userSource:  source,
		engine: &reconcile.Engine{
			Catalog:   resources,
			Inspector: inspector,
			Corrector: corrector,
			Clock:     host.Clock,
			Logger:    slog.New(debugOnly{logger.Handler()}),
		},
	}, nil
}

// resolveInstallUser follows config, then the legacy installer file,
// then the environment and account list.
func resolveInstallUser(host *Host, cfg *config.Config, accounts []principal.Account, logger *slog.Logger) (name, source string) {
	if cfg.InstallUser != "" {
		return cfg.InstallUser, "config"
	}

	legacy, path, found, err := config.ReadLegacy(host.FS, legacyCandidates(cfg, accounts)...)
	if err != nil {
		logger.Warn("ignoring unreadable legacy installer config", "path", path, "error", err)
	}
	if found && strings.TrimSpace(legacy.InstallUser) != "" {
		return strings.TrimSpace(legacy.InstallUser), path
	}

	name = principal.DetectInstallUser(principal.DetectInput{
		Getenv:   host.Getenv,
		Accounts: accounts,
	})
	return name, "detected"
}

// legacyCandidates lists where an earlier installer may have left
// installer_config.json, most specific first.
func legacyCandidates(cfg *config.Config, accounts []principal.Account) []string {
	candidates := []string{cfg.Paths.LegacyConfig}
	if cfg.Paths.Install != "" {
		candidates = append(candidates, config.LegacyPath(cfg.Paths.Install))
	}
	if cfg.Paths.Home != "" {
		candidates = append(candidates, config.LegacyPath(filepath.Join(cfg.Paths.Home, catalog.InstallDirName)))
	}
	for _, account := range accounts {
		if account.UID >= 1000 && strings.HasPrefix(account.HomeDir, "/home/") {
			candidates = append(candidates, config.LegacyPath(filepath.Join(account.HomeDir, catalog.InstallDirName)))
		}
	}
	return append(candidates, config.LegacyPath(filepath.Join("/root", catalog.InstallDirName)))
}

// auditLogPath is the configured audit log or the installation's
// logs/permissions.log.
func (s *session) auditLogPath() string {
	if s.config.Paths.AuditLog != "" {
		return s.config.Paths.AuditLog
	}
	return filepath.Join(s.environment.InstallDir, "logs", audit.FileName)
}

// debugOnly passes records to the console handler only when it is
// enabled for debug. The checklist already shows what the engine logs.
type debugOnly struct{ slog.Handler }

func (d debugOnly) Enabled(ctx context.Context, level slog.Level) bool {
	return d.Handler.Enabled(ctx, slog.LevelDebug)
}

func (d debugOnly) WithAttrs(attrs []slog.Attr) slog.Handler {
	return debugOnly{d.Handler.WithAttrs(attrs)}
}

func (d debugOnly) WithGroup(name string) slog.Handler {
	return debugOnly{d.Handler.WithGroup(name)}
}
