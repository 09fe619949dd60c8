package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/nbekov/farmbot/internal/config"
	"github.com/nbekov/farmbot/internal/farm"
	"github.com/nbekov/farmbot/internal/logger"
	"github.com/nbekov/farmbot/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Logger is not up yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.DebugLogging)
	defer log.Sync()
	log.Info("Starting farmbot", zap.String("config", *configPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner, err := farm.NewRunner(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize runner", zap.Error(err))
	}

	if cfg.PostgresURL != "" {
		store, err := postgres.NewStorage(cfg.PostgresURL, log)
		if err != nil {
			log.Fatal("Failed to connect storage", zap.Error(err))
		}
		if err := store.RunMigrations(); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
		runner.AttachStorage(store)
	}

	if err := runner.Run(ctx); err != nil {
		log.Fatal("Run failed", zap.Error(err))
	}
	log.Info("All iterations finished")
}
