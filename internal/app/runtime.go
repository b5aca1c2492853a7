// Package app wires the workspace database, config, logger and engine that
// every CLI command and the HTTP server share.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	charmLog "github.com/charmbracelet/log"

	"phasegate/internal/config"
	"phasegate/internal/db"
	"phasegate/internal/engine"
	"phasegate/internal/engine/auth"
	"phasegate/internal/logging"
	"phasegate/internal/migrate"
	"phasegate/internal/repo"
	"phasegate/internal/server"
)

// Options select the workspace and override config values from flags.
type Options struct {
	Workspace string
	LogLevel  string
	LogFormat string
	// LogOutput defaults to stderr.
	LogOutput io.Writer
}

// Runtime is an opened, migrated workspace.
type Runtime struct {
	Workspace string
	DB        *sql.DB
	Config    *config.Config
	Logger    *charmLog.Logger
	Engine    engine.Engine
}

// Open loads phasegate.yml (defaults when absent), opens the database and
// applies pending migrations.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Logging.Format = opts.LogFormat
	}
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, opts.LogOutput)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", db.Path(opts.Workspace), err)
	}
	e := engine.New(conn, logger)
	logger.Debug("workspace opened", "db", db.Path(opts.Workspace))
	return &Runtime{Workspace: opts.Workspace, DB: conn, Config: cfg, Logger: logger, Engine: e}, nil
}

func (rt *Runtime) Close() error {
	return rt.DB.Close()
}

// ResolveProject returns override when set, otherwise the only project in
// the workspace.
func ResolveProject(ctx context.Context, r repo.Repo, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	projects, err := r.ListProjects(ctx, repo.ProjectFilters{})
	if err != nil {
		return "", err
	}
	switch len(projects) {
	case 0:
		return "", fmt.Errorf("no projects in workspace; create one with phasegate project create")
	case 1:
		return projects[0].ID, nil
	default:
		return "", fmt.Errorf("project not specified; use --project")
	}
}

// ServerConfig maps phasegate.yml onto the HTTP handler config.
func (rt *Runtime) ServerConfig() server.Config {
	cfg := rt.Config
	return server.Config{
		Engine:   rt.Engine,
		BasePath: cfg.Server.BasePath,
		Logger:   rt.Logger,
		Metrics:  rt.Engine.Metrics,
		Auth: server.AuthConfig{
			Token: auth.TokenConfig{
				Secret:   cfg.Auth.JWTSecret,
				Issuer:   cfg.Auth.Issuer,
				Audience: cfg.Auth.Audience,
				TTL:      time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute,
			},
			DevLogin:        cfg.Auth.DevLogin,
			SSOSharedSecret: cfg.Auth.SSOSharedSecret,
			AllowUserHeader: cfg.Auth.AllowUserHeader,
		},
	}
}
