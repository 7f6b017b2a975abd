package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - database.go: Storage, database and cache configuration
//   - http.go: HTTP server configuration
//   - orchestrator.go: Job platform and extraction endpoint configuration
//   - insights.go: Insight workflow configuration
//   - services.go: Service mode configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or APP_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Storage selects and tunes the profile document backend.
	Storage StorageConfig

	// Database configuration (postgres backend only).
	Postgres DBConfig    `envPrefix:"DB_"`
	Cache    CacheConfig

	// HTTP server configuration
	HTTP HTTPConfig

	// Job platform and extraction endpoint configuration
	Orchestrator OrchestratorConfig
	Extractor    ExtractorConfig

	// Insight workflow configuration
	Insights InsightsConfig

	// Services is a comma-delimited list of enabled services.
	Services string `env:"SERVICES" envDefault:"http"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Storage.Sanitize()
	c.Cache.Sanitize()
	c.HTTP.Sanitize()
	c.Orchestrator.Sanitize()
	c.Extractor.Sanitize()
	c.Insights.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and APP_ENV environment variables.
// This is called by Sanitize() to ensure IsDev is set correctly.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsMigratorEnabled returns true if the one-shot migrator service is enabled.
func (c *AppConfig) IsMigratorEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeMigrator]
}
