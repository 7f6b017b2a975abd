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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/talentforge/insights/config"
	"github.com/talentforge/insights/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger("info")
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Observability.LogLevel != "info" {
		logger = bootstrap.InitLogger(cfg.Observability.LogLevel)
	}
	cfgPtr := &cfg

	if err = bootstrap.ValidateServiceConfig(cfgPtr); err != nil {
		return err
	}
	logStartupInfo(ctx, logger, cfgPtr)

	db, redisClient, err := initInfrastructure(cfgPtr, logger)
	if err != nil {
		return err
	}
	defer closeInfrastructure(ctx, logger, db, redisClient)

	if db != nil {
		if err = runStartupMigrations(ctx, cfgPtr, db, logger); err != nil {
			return err
		}
	}
	if cfg.IsMigratorEnabled() && !cfg.IsHTTPServerEnabled() {
		logger.InfoContext(ctx, "migrator run complete")
		return nil
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfgPtr,
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := services.MetricsSink.Close(); cerr != nil {
			logger.Warn("close metrics sink failed", "error", cerr)
		}
	}()

	return serve(ctx, cfgPtr, services, logger)
}

// serve runs the HTTP server until a shutdown signal arrives.
func serve(
	ctx context.Context,
	cfg *config.AppConfig,
	services bootstrap.ServiceContainer,
	logger *slog.Logger,
) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := bootstrap.NewHTTPServer(&bootstrap.HTTPServerConfig{
		Config:   cfg,
		Services: services,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if serveErr := server.ListenAndServe(); serveErr != nil &&
			!errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", serveErr)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return bootstrap.ShutdownHTTPServer(bootstrap.ShutdownConfig{
			Context: context.Background(),
			Server:  server,
			Grace:   cfg.HTTP.ShutdownGrace,
			Logger:  logger,
		})
	})
	return g.Wait()
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting insights service",
		"storage_backend", cfg.Storage.Backend,
		"document_cache", cfg.Storage.CacheEnabled,
		"orchestrator", cfg.Orchestrator.BaseURL,
		"enabled_services", bootstrap.GetEnabledServices(cfg))
}

// initInfrastructure connects only the dependencies the configuration needs:
// postgres for the postgres backend, redis for the document cache.
func initInfrastructure(
	cfg *config.AppConfig,
	logger *slog.Logger,
) (*sql.DB, *redis.Client, error) {
	var (
		db  *sql.DB
		err error
	)
	if cfg.Storage.Backend == config.StorageBackendPostgres || cfg.IsMigratorEnabled() {
		db, err = bootstrap.ConnectDB(bootstrap.DatabaseConfig{
			DBConfig: cfg.Postgres,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect db: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.Storage.CacheEnabled {
		redisClient, err = bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
			CacheConfig: cfg.Cache,
			Logger:      logger,
		})
		if err != nil {
			if db != nil {
				if cerr := db.Close(); cerr != nil {
					err = errors.Join(err, fmt.Errorf("close database: %w", cerr))
				}
			}
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	return db, redisClient, nil
}

func closeInfrastructure(ctx context.Context, logger *slog.Logger, db *sql.DB, redisClient *redis.Client) {
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.ErrorContext(ctx, "close database failed", "error", err)
		}
	}
}

func runStartupMigrations(
	ctx context.Context,
	cfg *config.AppConfig,
	db *sql.DB,
	logger *slog.Logger,
) error {
	if !cfg.Postgres.RunMigrationsOnStart && !cfg.IsMigratorEnabled() {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		return nil
	}
	return bootstrap.RunMigrations(ctx, db, logger)
}
