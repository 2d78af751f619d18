package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/techstore/techstore-api/internal/config"
	"github.com/techstore/techstore-api/internal/fixtures"
	"github.com/techstore/techstore-api/internal/observability"
	s3store "github.com/techstore/techstore-api/internal/storage/s3"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to read .env file", slog.Any("error", err))
		os.Exit(1)
	}

	// The snapshot is written for the embedded reader, so only the object
	// store settings have to be present.
	cfg, err := config.Load("techstore-fixtures", func(key string) (string, bool) {
		if key == "TECHSTORE_WAREHOUSE_DRIVER" {
			return string(config.DriverDuckDB), true
		}
		return os.LookupEnv(key)
	})
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	fixtureCfg, err := fixtures.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load fixture config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	snapshot, err := fixtures.NewGenerator(fixtureCfg.Seed).Snapshot(fixtureCfg)
	if err != nil {
		logger.Error("failed to generate fixtures", slog.Any("error", err))
		os.Exit(1)
	}

	publisher, err := fixtures.NewPublisher(store, logger)
	if err != nil {
		logger.Error("failed to initialize publisher", slog.Any("error", err))
		os.Exit(1)
	}
	published, err := publisher.Publish(ctx, snapshot)
	if err != nil {
		logger.Error("failed to publish fixtures", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("fixture snapshot published",
		slog.Int64("seed", fixtureCfg.Seed),
		slog.String("bucket", cfg.ObjectStore.Bucket),
		slog.Int("tables", len(published)),
	)
}
