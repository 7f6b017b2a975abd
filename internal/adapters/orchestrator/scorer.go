package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
)

const (
	defaultScoreKind    = "ats_score"
	defaultScoreMaxWait = 2 * time.Minute
)

// Scorer produces ATS scores by running a scoring workflow on the job
// platform and waiting for its result.
type Scorer struct {
	jobs         core.JobClient
	kind         string
	maxWait      time.Duration
	pollInterval time.Duration
}

var _ core.Scorer = (*Scorer)(nil)

// ScorerOptions groups dependencies for NewScorer.
type ScorerOptions struct {
	Jobs         core.JobClient // Required: job platform client
	Kind         string         // Optional: workflow kind, defaults to ats_score
	MaxWait      time.Duration  // Optional: wait budget per score
	PollInterval time.Duration  // Optional: status poll interval
}

// NewScorer constructs a Scorer.
func NewScorer(opts ScorerOptions) (*Scorer, error) {
	if opts.Jobs == nil {
		return nil, errors.New("job client is required")
	}
	kind := opts.Kind
	if kind == "" {
		kind = defaultScoreKind
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = defaultScoreMaxWait
	}
	return &Scorer{
		jobs:         opts.Jobs,
		kind:         kind,
		maxWait:      maxWait,
		pollInterval: opts.PollInterval,
	}, nil
}

type scoreInput struct {
	Resume         model.Resume `json:"resume"`
	JobDescription string       `json:"job_description"`
}

// Score submits a scoring job, waits for completion and validates the typed
// result.
func (s *Scorer) Score(ctx context.Context, req core.ScoreRequest) (*model.ATSScore, error) {
	input, err := json.Marshal(scoreInput{
		Resume:         req.Resume,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		return nil, fmt.Errorf("encode score input: %w", err)
	}

	handle, err := s.jobs.Submit(ctx, model.WorkSpec{Kind: s.kind, Input: input})
	if err != nil {
		return nil, err
	}

	handle, err = s.jobs.Await(ctx, handle.ExecutionID, core.AwaitOptions{
		MaxWait:      s.maxWait,
		PollInterval: s.pollInterval,
	})
	if err != nil {
		return nil, err
	}

	switch handle.State {
	case model.ExecutionSucceeded:
		var score model.ATSScore
		if err := json.Unmarshal(handle.Outputs, &score); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeRemoteFailure, "decode score outputs")
		}
		if err := score.Validate(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeRemoteFailure, "invalid score outputs")
		}
		return &score, nil
	case model.ExecutionTimedOut:
		return nil, apperrors.Timeout(
			fmt.Sprintf("scoring execution %s did not finish within %s", handle.ExecutionID, s.maxWait))
	case model.ExecutionFailed:
		return nil, apperrors.RemoteFailuref("scoring execution %s failed: %s", handle.ExecutionID, handle.Error)
	default:
		return nil, apperrors.RemoteFailuref("scoring execution %s ended in state %s", handle.ExecutionID, handle.State)
	}
}
