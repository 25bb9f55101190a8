// Package main implements the entry point for the Kanban task API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/phrazzld/kanban-api/internal/config"
	"github.com/phrazzld/kanban-api/internal/platform/logger"
	"github.com/phrazzld/kanban-api/internal/platform/postgres"
	"github.com/phrazzld/kanban-api/internal/redact"
)

// errMigrateNeedsPostgres is returned by -migrate when the memory driver is
// configured.
var errMigrateNeedsPostgres = errors.New("migrations require the postgres driver")

func main() {
	migrate := flag.String(
		"migrate",
		"",
		"run a migration command and exit ("+strings.Join(postgres.MigrationCommands, ", ")+")",
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *migrate); err != nil {
		slog.Error("server exited with error", "error", redact.Error(err))
		stop()
		os.Exit(1)
	}
}

// run loads configuration and either executes a migration command or serves
// the API until ctx is cancelled.
func run(ctx context.Context, migrateCommand string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	l.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_driver", cfg.Database.Driver,
		"events_async", cfg.Events.Async,
		"redis_enabled", cfg.Redis.Enabled)

	if migrateCommand != "" {
		return runMigration(ctx, cfg, l, migrateCommand)
	}

	app, err := newApplication(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	return app.Run(ctx)
}

// runMigration opens the database and runs one goose command against it.
func runMigration(ctx context.Context, cfg *config.Config, l *slog.Logger, command string) error {
	if cfg.Database.Driver != config.DriverPostgres {
		return errMigrateNeedsPostgres
	}

	db, err := postgres.Open(ctx, cfg.Database, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			l.Error("failed to close database connection", "error", redact.Error(err))
		}
	}()

	return postgres.Migrate(ctx, db, command, l)
}
