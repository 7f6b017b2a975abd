package config

import (
	"strings"
	"time"
)

// StorageBackend selects the profile document repository implementation.
type StorageBackend string

const (
	// StorageBackendFile stores one JSON document per profile on disk.
	StorageBackendFile StorageBackend = "file"
	// StorageBackendPostgres stores documents as jsonb rows in PostgreSQL.
	StorageBackendPostgres StorageBackend = "postgres"
)

// Valid returns true if the backend name is recognized.
func (b StorageBackend) Valid() bool {
	return b == StorageBackendFile || b == StorageBackendPostgres
}

// StorageConfig selects and tunes the profile document backend.
type StorageConfig struct {
	// Backend selects the repository implementation: file or postgres.
	Backend StorageBackend `env:"STORAGE_BACKEND" envDefault:"file"`

	// FileDir is the data directory for the file backend.
	FileDir string `env:"STORAGE_FILE_DIR" envDefault:"./data/profiles"`

	// CacheEnabled puts the Redis read-through document cache in front of
	// the selected backend.
	CacheEnabled bool `env:"STORAGE_CACHE_ENABLED" envDefault:"false"`
}

// Sanitize applies guardrails to storage configuration values.
func (s *StorageConfig) Sanitize() {
	s.Backend = StorageBackend(strings.ToLower(strings.TrimSpace(string(s.Backend))))
	if !s.Backend.Valid() {
		s.Backend = StorageBackendFile
	}
	if strings.TrimSpace(s.FileDir) == "" {
		s.FileDir = "./data/profiles"
	}
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"insights"`
	Password string `env:"PASSWORD" envDefault:"insights"`
	Name     string `env:"NAME"     envDefault:"insights"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// CacheConfig contains the Redis document cache configuration.
type CacheConfig struct {
	RedisAddr     string `env:"CACHE_REDIS_ADDR"     envDefault:"localhost:6379"`
	RedisPassword string `env:"CACHE_REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"CACHE_REDIS_DB"       envDefault:"0"`

	// ProfileTTL is the TTL for cached profile documents.
	ProfileTTL time.Duration `env:"CACHE_PROFILE_TTL" envDefault:"15m"`
}

// Sanitize applies guardrails to cache configuration values.
func (c *CacheConfig) Sanitize() {
	c.RedisAddr = strings.TrimSpace(c.RedisAddr)
	if c.ProfileTTL <= 0 {
		c.ProfileTTL = 15 * time.Minute
	}
}
