package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/utilitysplitter/backend/internal/application/service"
	"github.com/utilitysplitter/backend/internal/cli"
	"github.com/utilitysplitter/backend/internal/infrastructure/config"
	"github.com/utilitysplitter/backend/internal/infrastructure/logging"
	"github.com/utilitysplitter/backend/internal/infrastructure/storage"
)

func main() {
	// Load .env if present, real env vars win
	_ = godotenv.Load()

	flags := cli.ParseSyncFlags()

	cfg := config.LoadOrEnvWithPath(flags.ConfigPath)

	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "bill-sync")

	cli.PrintHeader(cfg.Property.Name, flags.DryRun)

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	source, err := cli.NewBillSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to bill source", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = source.Close() }()

	syncService := service.NewSyncService(source, store, logger)

	result, err := syncService.Run(ctx, flags.ToSyncRequest())
	if err != nil {
		logger.Error("sync failed", slog.Any("error", err))
		os.Exit(1)
	}

	cli.PrintSyncSummary(result, store, flags.DryRun)
}
