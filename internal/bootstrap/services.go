package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/talentforge/insights/config"
	"github.com/talentforge/insights/internal/adapters/extractor"
	"github.com/talentforge/insights/internal/adapters/orchestrator"
	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/data"
	"github.com/talentforge/insights/internal/data/docstore"
	"github.com/talentforge/insights/internal/observability/statsd"
	"github.com/talentforge/insights/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Profiles   *service.ProfileService
	Insights   *service.InsightsService
	ScoreCache *service.ScoreCacheService

	// Repo is the wired profile repository, exposed for admin tooling.
	Repo core.ProfileRepository

	// MetricsSink is nil when metrics are disabled; a nil *statsd.Client
	// is a no-op sink so callers can pass it through unconditionally.
	MetricsSink *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB       // Required for the postgres storage backend
	RedisClient *redis.Client // Required when the document cache is enabled
	Logger      *slog.Logger
}

// NewServices wires repositories, adapters and services from configuration.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	cfg := deps.Config
	logger := deps.Logger

	sink, err := buildMetricsSink(cfg.Observability.Metrics, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	repo, err := buildRepository(deps)
	if err != nil {
		return ServiceContainer{}, err
	}

	jobs, err := orchestrator.NewClient(orchestrator.Config{
		BaseURL:         cfg.Orchestrator.BaseURL,
		Timeout:         cfg.Orchestrator.Timeout,
		SubmitRetries:   cfg.Orchestrator.SubmitRetries,
		PollRetries:     cfg.Orchestrator.PollRetries,
		MinPollInterval: cfg.Orchestrator.MinPollInterval,
		OutputsPath:     cfg.Orchestrator.OutputsPath,
		Logger:          logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build orchestrator client: %w", err)
	}

	scorer, err := orchestrator.NewScorer(orchestrator.ScorerOptions{
		Jobs:         jobs,
		Kind:         cfg.Insights.ScoreKind,
		MaxWait:      cfg.Insights.ScoreMaxWait,
		PollInterval: cfg.Insights.PollInterval,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build scorer: %w", err)
	}

	var extractorClient core.Extractor
	if cfg.Extractor.EndpointURL != "" {
		client, cerr := extractor.NewClient(extractor.Config{
			EndpointURL: cfg.Extractor.EndpointURL,
			Timeout:     cfg.Extractor.Timeout,
			Logger:      logger,
		})
		if cerr != nil {
			return ServiceContainer{}, fmt.Errorf("build extractor client: %w", cerr)
		}
		extractorClient = client
	} else if logger != nil {
		logger.Warn("no extraction endpoint configured, document ingestion is disabled")
	}

	scoreCache, err := service.NewScoreCacheService(service.ScoreCacheServiceOptions{
		Repo:   repo,
		Sink:   sink,
		Logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build score cache service: %w", err)
	}

	profiles, err := service.NewProfileService(service.ProfileServiceOptions{
		Repo:      repo,
		Extractor: extractorClient,
		Logger:    logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build profile service: %w", err)
	}

	insights, err := service.NewInsightsService(service.InsightsServiceOptions{
		Repo:           repo,
		Jobs:           jobs,
		Scorer:         scorer,
		ScoreCache:     scoreCache,
		SalaryKind:     cfg.Insights.SalaryKind,
		UpskillingKind: cfg.Insights.UpskillingKind,
		MaxWait:        cfg.Insights.MaxWait,
		PollInterval:   cfg.Insights.PollInterval,
		Sink:           sink,
		Logger:         logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build insights service: %w", err)
	}

	return ServiceContainer{
		Profiles:    profiles,
		Insights:    insights,
		ScoreCache:  scoreCache,
		Repo:        repo,
		MetricsSink: sink,
	}, nil
}

func buildMetricsSink(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	if !cfg.IsEnabled() {
		return nil, nil
	}
	sink, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  "insights",
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build statsd client: %w", err)
	}
	return sink, nil
}

func buildRepository(deps *ServiceDeps) (core.ProfileRepository, error) {
	cfg := deps.Config

	var (
		repo core.ProfileRepository
		err  error
	)
	switch cfg.Storage.Backend {
	case config.StorageBackendPostgres:
		if deps.DB == nil {
			return nil, errors.New("postgres storage backend requires a database connection")
		}
		repo, err = docstore.NewPGStore(docstore.PGStoreOptions{
			DB:     deps.DB,
			Logger: deps.Logger,
		})
	default:
		repo, err = docstore.NewFileStore(docstore.FileStoreOptions{
			Dir:    cfg.Storage.FileDir,
			Logger: deps.Logger,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("build %s store: %w", cfg.Storage.Backend, err)
	}

	if !cfg.Storage.CacheEnabled {
		return repo, nil
	}
	if deps.RedisClient == nil {
		return nil, errors.New("document cache requires a redis connection")
	}

	cached, err := docstore.NewCachedStore(docstore.CachedStoreOptions{
		Inner:  repo,
		Cache:  data.NewRedisCacheRepo(deps.RedisClient),
		Logger: deps.Logger,
		TTL:    cfg.Cache.ProfileTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("build cached store: %w", err)
	}
	return cached, nil
}
