package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/ogurasousui/minijobber-sync/internal/platform/config"
	"github.com/ogurasousui/minijobber-sync/internal/platform/db/migrations"
	"github.com/ogurasousui/minijobber-sync/internal/platform/logging"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		migrationsDir = flag.String("dir", "", "directory containing migration files (defaults to the embedded sync infrastructure)")
	)
	flag.Parse()

	action := "up"
	if flag.NArg() > 0 {
		action = flag.Arg(0)
	}

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger, closer := logging.New(cfg.Log, os.Stderr)
	defer closer.Close()

	if cfg.Executor.Mode != config.ExecutorModePostgres {
		logger.Error("migrate needs direct database access; set executor.mode to postgres and fill in the database section")
		os.Exit(1)
	}

	if err := migrations.Run(action, *migrationsDir, cfg.Database.DSN(), logger); err != nil {
		logger.Error("migration failed", "action", action, "err", err)
		closer.Close()
		os.Exit(1)
	}

	logger.Info("migration completed", "action", action)
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}
