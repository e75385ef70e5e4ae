package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/arenabid/live-auction-backend/internal/infrastructure/config"
	"github.com/arenabid/live-auction-backend/internal/infrastructure/database"
	"github.com/arenabid/live-auction-backend/internal/infrastructure/telemetry"
)

// Standalone migration runner for deploy pipelines that migrate before
// rolling the API.
func main() {
	path := flag.String("path", "", "migrations directory (defaults to the configured path)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer logger.Sync()

	migrationsPath := cfg.Database.MigrationsPath
	if *path != "" {
		migrationsPath = *path
	}

	db, err := database.Connect(context.Background(), database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, migrationsPath, logger); err != nil {
		logger.Fatal("running migrations", zap.Error(err))
	}
}
