package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/talentforge/insights/config"
	"github.com/talentforge/insights/internal/bootstrap"
)

// backend bundles the service container with the infrastructure handles the
// command must release when it finishes.
type backend struct {
	Services bootstrap.ServiceContainer

	db          *sql.DB
	redisClient *redis.Client
	logger      *slog.Logger
}

// connectBackend wires the same dependency set the server uses: postgres only
// for the postgres storage backend, redis only when the document cache is on.
func connectBackend(logger *slog.Logger, cfg *config.AppConfig) (*backend, error) {
	var (
		db  *sql.DB
		err error
	)
	if cfg.Storage.Backend == config.StorageBackendPostgres {
		db, err = bootstrap.ConnectDB(bootstrap.DatabaseConfig{
			DBConfig: cfg.Postgres,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
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
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfg,
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		closeErr := closeHandles(db, redisClient)
		if closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return nil, err
	}

	return &backend{
		Services:    services,
		db:          db,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

func (b *backend) Close() error {
	var closeErr error
	if err := b.Services.MetricsSink.Close(); err != nil {
		closeErr = errors.Join(closeErr, fmt.Errorf("close metrics sink: %w", err))
	}
	if err := closeHandles(b.db, b.redisClient); err != nil {
		closeErr = errors.Join(closeErr, err)
	}
	return closeErr
}

func closeHandles(db *sql.DB, redisClient *redis.Client) error {
	var closeErr error
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close redis: %w", err))
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("close database: %w", err))
		}
	}
	return closeErr
}

// withBackend runs f against a connected backend and releases it afterwards.
func withBackend(cmdCtx *commandContext, f func(*backend) error) error {
	b, err := connectBackend(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			cmdCtx.Logger.Warn("close backend failed", "error", cerr)
		}
	}()
	return f(b)
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}
