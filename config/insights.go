package config

import (
	"strings"
	"time"
)

// InsightsConfig contains insight workflow configuration.
type InsightsConfig struct {
	// ScoreKind is the workflow kind for ATS scoring.
	ScoreKind string `env:"INSIGHTS_SCORE_KIND" envDefault:"ats_score"`

	// SalaryKind is the workflow kind for salary research.
	SalaryKind string `env:"INSIGHTS_SALARY_KIND" envDefault:"salary_research"`

	// UpskillingKind is the workflow kind for upskilling analysis.
	UpskillingKind string `env:"INSIGHTS_UPSKILLING_KIND" envDefault:"upskilling_analysis"`

	// ScoreMaxWait is the synchronous wait budget for a scoring execution.
	ScoreMaxWait time.Duration `env:"INSIGHTS_SCORE_MAX_WAIT" envDefault:"2m"`

	// MaxWait is the synchronous wait budget for salary and upskilling
	// executions, which run deep-research agents and take minutes.
	MaxWait time.Duration `env:"INSIGHTS_MAX_WAIT" envDefault:"5m"`

	// PollInterval is how often execution status is polled while waiting.
	PollInterval time.Duration `env:"INSIGHTS_POLL_INTERVAL" envDefault:"2s"`
}

// Sanitize applies guardrails to insight workflow configuration values.
func (i *InsightsConfig) Sanitize() {
	if strings.TrimSpace(i.ScoreKind) == "" {
		i.ScoreKind = "ats_score"
	}
	if strings.TrimSpace(i.SalaryKind) == "" {
		i.SalaryKind = "salary_research"
	}
	if strings.TrimSpace(i.UpskillingKind) == "" {
		i.UpskillingKind = "upskilling_analysis"
	}
	if i.ScoreMaxWait <= 0 {
		i.ScoreMaxWait = 2 * time.Minute
	}
	if i.MaxWait <= 0 {
		i.MaxWait = 5 * time.Minute
	}
	if i.PollInterval <= 0 {
		i.PollInterval = 2 * time.Second
	}
}
