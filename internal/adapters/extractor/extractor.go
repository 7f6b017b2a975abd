// Package extractor adapts a remote extraction endpoint to the Extractor
// port. The endpoint turns an uploaded resume document into structured base
// fields; how it does that is opaque to this service.
package extractor

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

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
)

const defaultTimeout = 60 * time.Second

// Config holds settings for the extraction client.
type Config struct {
	EndpointURL string // Required: extraction endpoint

	Timeout time.Duration // Per-request timeout when Client is not supplied
	Client  *http.Client  // Optional: override transport
	Logger  *slog.Logger  // Optional: structured logger
}

// Client calls the remote extraction endpoint.
type Client struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

var _ core.Extractor = (*Client)(nil)

// NewClient builds an extraction client from cfg.
func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.EndpointURL)
	if endpoint == "" {
		return nil, errors.New("extraction endpoint url is required")
	}
	if u, err := url.Parse(endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid extraction endpoint url %q", cfg.EndpointURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	var logger *slog.Logger
	if cfg.Logger != nil {
		logger = cfg.Logger.With("component", "extractor_client")
	}

	return &Client{endpoint: endpoint, client: hc, logger: logger}, nil
}

type extractRequest struct {
	Filename string `json:"filename"`
	// Data is base64-encoded by encoding/json.
	Data []byte `json:"data"`
}

// Extract sends the document to the extraction endpoint and decodes the
// structured resume.
func (c *Client) Extract(ctx context.Context, req core.ExtractRequest) (*model.Resume, error) {
	if len(req.Data) == 0 {
		return nil, apperrors.Validation("document data is required")
	}

	body, err := json.Marshal(extractRequest{Filename: req.Filename, Data: req.Data})
	if err != nil {
		return nil, fmt.Errorf("encode extract request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create extract request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRemoteFailure, "extraction request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var resume model.Resume
		if decodeErr := json.NewDecoder(resp.Body).Decode(&resume); decodeErr != nil {
			return nil, apperrors.Wrap(decodeErr, apperrors.ErrCodeRemoteFailure, "decode extraction response")
		}
		if c.logger != nil {
			c.logger.DebugContext(ctx, "resume extracted",
				"filename", req.Filename, "skills", len(resume.Skills))
		}
		return &resume, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, apperrors.Validationf("extraction rejected document: %s", readBody(resp))

	default:
		return nil, apperrors.RemoteFailuref("extraction failed: %s", readBody(resp))
	}
}

func readBody(resp *http.Response) string {
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
