package config

import (
	"strings"
	"time"
)

// OrchestratorConfig contains job platform client configuration.
type OrchestratorConfig struct {
	// BaseURL is the orchestration platform base URL.
	BaseURL string `env:"ORCHESTRATOR_BASE_URL" envDefault:"http://localhost:8090"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `env:"ORCHESTRATOR_TIMEOUT" envDefault:"30s"`

	// SubmitRetries is how many extra submit attempts follow a transient failure.
	SubmitRetries int `env:"ORCHESTRATOR_SUBMIT_RETRIES" envDefault:"3"`

	// PollRetries is how many extra poll attempts follow a transient failure.
	PollRetries int `env:"ORCHESTRATOR_POLL_RETRIES" envDefault:"3"`

	// MinPollInterval is the floor applied to status poll intervals.
	MinPollInterval time.Duration `env:"ORCHESTRATOR_MIN_POLL_INTERVAL" envDefault:"500ms"`

	// OutputsPath is the JMESPath expression locating results in the
	// platform's status payload.
	OutputsPath string `env:"ORCHESTRATOR_OUTPUTS_PATH" envDefault:"outputs.result"`
}

// Sanitize applies guardrails to orchestrator configuration values.
func (o *OrchestratorConfig) Sanitize() {
	o.BaseURL = strings.TrimSpace(o.BaseURL)
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.SubmitRetries < 0 {
		o.SubmitRetries = 0
	}
	if o.PollRetries < 0 {
		o.PollRetries = 0
	}
	if o.MinPollInterval < 100*time.Millisecond {
		o.MinPollInterval = 100 * time.Millisecond
	}
	if strings.TrimSpace(o.OutputsPath) == "" {
		o.OutputsPath = "outputs.result"
	}
}

// ExtractorConfig contains resume extraction endpoint configuration.
type ExtractorConfig struct {
	// EndpointURL is the document extraction endpoint. Empty disables
	// ingestion (profiles can still be read and scored).
	EndpointURL string `env:"EXTRACTOR_ENDPOINT_URL" envDefault:""`

	// Timeout is the per-request HTTP timeout. Extraction of large
	// documents is slow, so this is generous.
	Timeout time.Duration `env:"EXTRACTOR_TIMEOUT" envDefault:"60s"`
}

// Sanitize applies guardrails to extractor configuration values.
func (e *ExtractorConfig) Sanitize() {
	e.EndpointURL = strings.TrimSpace(e.EndpointURL)
	if e.Timeout <= 0 {
		e.Timeout = 60 * time.Second
	}
}
