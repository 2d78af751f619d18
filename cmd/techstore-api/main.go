package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/techstore/techstore-api/internal/analytics"
	"github.com/techstore/techstore-api/internal/api"
	"github.com/techstore/techstore-api/internal/config"
	"github.com/techstore/techstore-api/internal/observability"
	s3store "github.com/techstore/techstore-api/internal/storage/s3"
	"github.com/techstore/techstore-api/internal/warehouse"
	"github.com/techstore/techstore-api/internal/warehouse/databricks"
	"github.com/techstore/techstore-api/internal/warehouse/duckdb"
	"github.com/techstore/techstore-api/internal/warehouse/postgres"
)

func main() {
	// Variables already set in the environment win over the .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to read .env file", slog.Any("error", err))
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv("techstore-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, closeWarehouse, executorOpts, err := openWarehouse(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeWarehouse()

	dialect, err := warehouse.NewDialect(string(cfg.Warehouse.Driver), cfg.Warehouse.Catalog, cfg.Warehouse.Schema)
	if err != nil {
		logger.Error("failed to build warehouse dialect", slog.Any("error", err))
		os.Exit(1)
	}
	executor, err := warehouse.NewExecutor(db, dialect, executorOpts...)
	if err != nil {
		logger.Error("failed to build warehouse executor", slog.Any("error", err))
		os.Exit(1)
	}
	service, err := analytics.NewService(executor)
	if err != nil {
		logger.Error("failed to build analytics service", slog.Any("error", err))
		os.Exit(1)
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:            logger,
		Analytics:         service,
		Readiness:         api.CheckWarehouse(executor.Ping),
		DependencyTimeout: cfg.HTTP.DependencyTimeout,
	})
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openWarehouse(ctx context.Context, cfg config.Config) (*sql.DB, func(), []warehouse.Option, error) {
	switch cfg.Warehouse.Driver {
	case config.DriverDatabricks:
		db, err := databricks.Open(databricks.Config{
			Host:         cfg.Databricks.Host,
			HTTPPath:     cfg.Databricks.HTTPPath,
			Token:        cfg.Databricks.Token,
			Port:         cfg.Databricks.Port,
			Catalog:      cfg.Warehouse.Catalog,
			Schema:       cfg.Warehouse.Schema,
			QueryTimeout: cfg.Databricks.QueryTimeout,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil, nil
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil, nil
	case config.DriverDuckDB:
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
			return nil, nil, nil, fmt.Errorf("initialize object store: %w", err)
		}
		snapshot, err := duckdb.Open(ctx, store, duckdb.Config{
			Schema: cfg.Warehouse.Schema,
			Tables: analytics.GoldTables,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return snapshot.DB(), func() { _ = snapshot.Close() }, []warehouse.Option{warehouse.WithValueNormalizer(duckdb.NormalizeValue)}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported warehouse driver %q", cfg.Warehouse.Driver)
	}
}
