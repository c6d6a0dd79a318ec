// opsdeskd is the local development backend. It serves the same HTTP surface
// as the production helpdesk API so the client can run fully offline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/opsdesk/opsdesk/migrate"
	"github.com/opsdesk/opsdesk/seed"
	"github.com/opsdesk/opsdesk/server"
	"github.com/opsdesk/opsdesk/store"
)

func main() {
	var (
		addr       = flag.String("addr", "", "listen address (overrides config)")
		driver     = flag.String("driver", "", "database driver: sqlite or postgres (overrides config)")
		dsn        = flag.String("dsn", "", "database DSN (overrides config)")
		runMigrate = flag.Bool("migrate", true, "apply schema migrations on startup")
		migrateCmd = flag.String("migrate-cmd", "up", "migration command: up, down, status or reset; anything but up exits after running")
		runSeed    = flag.Bool("seed", false, "insert development fixtures after migrating")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := server.GetConfig()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *driver != "" {
		cfg.Database.Driver = *driver
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}

	if err := run(cfg, *runMigrate, *migrateCmd, *runSeed, logger); err != nil {
		logger.Error("opsdeskd failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *server.AppConfig, runMigrate bool, migrateCmd string, runSeed bool, logger *slog.Logger) error {
	if runMigrate {
		err := migrate.Run(migrate.Options{
			Driver:  cfg.Database.Driver,
			DSN:     cfg.Database.DSN,
			Command: migrateCmd,
			Logger:  log.New(os.Stderr, "[migrate] ", log.LstdFlags),
		})
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		// Maintenance commands run and exit; only "up" continues to serve.
		if migrateCmd != "" && migrateCmd != "up" {
			logger.Info("migration command finished", slog.String("command", migrateCmd))
			return nil
		}
	}

	db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if runSeed {
		if err := seed.Run(context.Background(), db, logger); err != nil {
			return err
		}
	}

	var revocations store.RevocationStore
	if cfg.Valkey.Addr != "" {
		vk, err := store.NewValkeyRevocationStore(cfg.Valkey.Addr, cfg.Valkey.Prefix)
		if err != nil {
			return fmt.Errorf("connect valkey: %w", err)
		}
		defer vk.Close()
		revocations = vk
		logger.Info("using valkey revocation store", slog.String("addr", cfg.Valkey.Addr))
	}

	return server.NewServer(cfg, db, revocations, logger).Run()
}
