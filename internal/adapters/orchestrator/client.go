// Package orchestrator contains the HTTP client for the remote agent-run
// platform. The client is agnostic to what the platform computes; it only
// understands the submit/status wire shape and the execution state machine.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultSubmitRetries   = 3
	defaultPollRetries     = 3
	defaultMinPollInterval = 500 * time.Millisecond
	defaultOutputsPath     = "outputs.result"
	retryBackoffStep       = 200 * time.Millisecond
)

// Config holds settings for the orchestrator client.
type Config struct {
	BaseURL string // Required: platform base URL, e.g. http://orchestrator:8090

	Timeout         time.Duration // Per-request timeout when Client is not supplied
	SubmitRetries   int           // Extra attempts after the first submit failure
	PollRetries     int           // Extra attempts after a transient poll failure
	MinPollInterval time.Duration // Floor applied to AwaitOptions.PollInterval
	OutputsPath     string        // JMESPath locating results in the status payload

	Client *http.Client // Optional: override transport
	Logger *slog.Logger // Optional: structured logger
	Clock  Clock        // Optional: clock override for tests
}

// Client talks to the remote orchestration platform.
type Client struct {
	baseURL         string
	submitRetries   int
	pollRetries     int
	minPollInterval time.Duration
	outputsExpr     jmespath.JMESPath

	client *http.Client
	logger *slog.Logger
	clock  Clock
}

var _ core.JobClient = (*Client)(nil)

// NewClient builds an orchestrator client from cfg.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("orchestrator base url is required")
	}
	if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid orchestrator base url %q", cfg.BaseURL)
	}

	outputsPath := strings.TrimSpace(cfg.OutputsPath)
	if outputsPath == "" {
		outputsPath = defaultOutputsPath
	}
	expr, err := jmespath.Compile(outputsPath)
	if err != nil {
		return nil, fmt.Errorf("compile outputs path %q: %w", outputsPath, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	submitRetries := cfg.SubmitRetries
	if submitRetries < 0 {
		submitRetries = 0
	} else if cfg.SubmitRetries == 0 {
		submitRetries = defaultSubmitRetries
	}
	pollRetries := cfg.PollRetries
	if pollRetries < 0 {
		pollRetries = 0
	} else if cfg.PollRetries == 0 {
		pollRetries = defaultPollRetries
	}

	minPoll := cfg.MinPollInterval
	if minPoll <= 0 {
		minPoll = defaultMinPollInterval
	}

	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}

	var logger *slog.Logger
	if cfg.Logger != nil {
		logger = cfg.Logger.With("component", "orchestrator_client")
	}

	return &Client{
		baseURL:         base,
		submitRetries:   submitRetries,
		pollRetries:     pollRetries,
		minPollInterval: minPoll,
		outputsExpr:     expr,
		client:          hc,
		logger:          logger,
		clock:           clock,
	}, nil
}

// MustNewClient is NewClient that panics on error, for wiring in main.
func MustNewClient(cfg Config) *Client {
	c, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

type submitResponse struct {
	ExecutionID string `json:"execution_id"`
}

type statusResponse struct {
	ExecutionID string          `json:"execution_id"`
	Status      string          `json:"status"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	EndedAt     *time.Time      `json:"ended_at,omitempty"`
	Outputs     json.RawMessage `json:"outputs,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Submit sends one unit of work and returns once the platform acknowledges
// acceptance. Network errors and 5xx responses are retried with backoff; a
// 4xx rejection is surfaced immediately as a Submission error.
func (c *Client) Submit(ctx context.Context, spec model.WorkSpec) (*model.JobHandle, error) {
	if err := spec.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSubmission, "invalid work spec")
	}

	body, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode work spec: %w", err)
	}

	attempts := c.submitRetries + 1
	var lastErr error
	for attempt := range attempts {
		handle, retryable, submitErr := c.submitOnce(ctx, body)
		if submitErr == nil {
			return handle, nil
		}
		if !retryable {
			return nil, submitErr
		}
		lastErr = submitErr

		if c.logger != nil {
			c.logger.WarnContext(ctx, "submit attempt failed",
				"kind", spec.Kind,
				"attempt", attempt+1,
				"err", submitErr,
			)
		}
		if attempt < attempts-1 {
			if sleepErr := c.clock.Sleep(ctx, time.Duration(attempt+1)*retryBackoffStep); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}

	return nil, apperrors.Wrapf(lastErr, apperrors.ErrCodeSubmission,
		"submit failed after %d attempts", attempts)
}

// submitOnce performs a single submission. The bool reports whether the
// failure is worth retrying.
func (c *Client) submitOnce(ctx context.Context, body []byte) (*model.JobHandle, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/executions", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("submit request failed: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out submitResponse
		if decodeErr := decodeBody(resp, &out); decodeErr != nil {
			return nil, false, fmt.Errorf("decode submit response: %w", decodeErr)
		}
		if out.ExecutionID == "" {
			return nil, false, apperrors.Submission("platform returned no execution id")
		}
		return &model.JobHandle{
			ExecutionID: out.ExecutionID,
			State:       model.ExecutionPending,
		}, false, nil

	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("platform error: %s", readErrorBody(resp))

	default:
		// 4xx means the spec itself was rejected; retrying cannot help.
		return nil, false, apperrors.Submissionf("platform rejected work: %s", readErrorBody(resp))
	}
}

// PollOnce performs a single status read. A 404 maps to NotFound; transient
// failures are retried up to the configured budget before surfacing as a
// TransientPoll error.
func (c *Client) PollOnce(ctx context.Context, executionID string) (*model.JobHandle, error) {
	if strings.TrimSpace(executionID) == "" {
		return nil, apperrors.Validation("execution id is required")
	}

	attempts := c.pollRetries + 1
	var lastErr error
	for attempt := range attempts {
		handle, retryable, pollErr := c.pollOnce(ctx, executionID)
		if pollErr == nil {
			return handle, nil
		}
		if !retryable {
			return nil, pollErr
		}
		lastErr = pollErr

		if attempt < attempts-1 {
			if sleepErr := c.clock.Sleep(ctx, time.Duration(attempt+1)*retryBackoffStep); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}

	return nil, apperrors.Wrapf(lastErr, apperrors.ErrCodeTransientPoll,
		"poll failed after %d attempts", attempts)
}

func (c *Client) pollOnce(ctx context.Context, executionID string) (*model.JobHandle, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/executions/"+url.PathEscape(executionID), nil)
	if err != nil {
		return nil, false, fmt.Errorf("create poll request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("poll request failed: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out statusResponse
		if decodeErr := decodeBody(resp, &out); decodeErr != nil {
			return nil, false, fmt.Errorf("decode status response: %w", decodeErr)
		}
		handle, buildErr := c.buildHandle(executionID, &out)
		if buildErr != nil {
			return nil, false, buildErr
		}
		return handle, false, nil

	case resp.StatusCode == http.StatusNotFound:
		drainBody(resp)
		return nil, false, apperrors.NotFoundf("unknown execution %s", executionID)

	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("platform error: %s", readErrorBody(resp))

	default:
		return nil, false, apperrors.RemoteFailuref("unexpected poll status: %s", readErrorBody(resp))
	}
}

// buildHandle maps a status payload to a JobHandle, extracting outputs for
// succeeded executions via the configured JMESPath.
func (c *Client) buildHandle(executionID string, st *statusResponse) (*model.JobHandle, error) {
	var state model.ExecutionState
	if err := state.UnmarshalText([]byte(st.Status)); err != nil {
		return nil, apperrors.RemoteFailuref("platform reported unknown state %q", st.Status)
	}

	handle := &model.JobHandle{
		ExecutionID: st.ExecutionID,
		State:       state,
		StartedAt:   st.StartedAt,
		EndedAt:     st.EndedAt,
	}
	if handle.ExecutionID == "" {
		handle.ExecutionID = executionID
	}

	switch state {
	case model.ExecutionSucceeded:
		outputs, err := c.extractOutputs(st)
		if err != nil {
			return nil, err
		}
		handle.Outputs = outputs
	case model.ExecutionFailed:
		handle.Error = st.Error
	}
	return handle, nil
}

// extractOutputs applies the outputs expression to the full status payload.
// Falls back to the raw outputs field when the expression matches nothing.
func (c *Client) extractOutputs(st *statusResponse) (json.RawMessage, error) {
	payload, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("re-encode status payload: %w", err)
	}
	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("decode status payload: %w", err)
	}

	result, err := c.outputsExpr.Search(data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRemoteFailure, "extract outputs")
	}
	if result == nil {
		return st.Outputs, nil
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode extracted outputs: %w", err)
	}
	return raw, nil
}

// Await polls until the execution reaches a terminal state or the wait budget
// elapses. On elapse it returns a handle in the timed_out state and a nil
// error; the remote execution is left running.
func (c *Client) Await(
	ctx context.Context,
	executionID string,
	opts core.AwaitOptions,
) (*model.JobHandle, error) {
	if opts.MaxWait <= 0 {
		return nil, apperrors.Validation("await max wait must be positive")
	}
	interval := opts.PollInterval
	if interval < c.minPollInterval {
		interval = c.minPollInterval
	}

	deadline := c.clock.Now().Add(opts.MaxWait)
	var last *model.JobHandle
	for {
		handle, err := c.PollOnce(ctx, executionID)
		if err != nil {
			if apperrors.IsTransientPoll(err) && c.clock.Now().Before(deadline) {
				// Keep waiting; transient poll failures consume budget, not the execution.
				if c.logger != nil {
					c.logger.WarnContext(ctx, "transient poll failure during await",
						"execution_id", executionID, "err", err)
				}
			} else {
				return nil, err
			}
		} else {
			if handle.Done() {
				return handle, nil
			}
			last = handle
		}

		if !c.clock.Now().Add(interval).After(deadline) {
			if sleepErr := c.clock.Sleep(ctx, interval); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}

		return timedOutHandle(executionID, last), nil
	}
}

// timedOutHandle marks the local wait as elapsed without touching the remote
// execution.
func timedOutHandle(executionID string, last *model.JobHandle) *model.JobHandle {
	handle := &model.JobHandle{
		ExecutionID: executionID,
		State:       model.ExecutionTimedOut,
	}
	if last != nil {
		handle.StartedAt = last.StartedAt
	}
	return handle
}

func decodeBody(resp *http.Response, out any) error {
	defer func() { _ = resp.Body.Close() }()
	return json.NewDecoder(resp.Body).Decode(out)
}

func readErrorBody(resp *http.Response) string {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return resp.Status
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return resp.Status
	}
	return resp.Status + ": " + msg
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
