package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/data"
	"github.com/talentforge/insights/internal/domain/fingerprint"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
	"github.com/talentforge/insights/internal/observability/metrics"
	"github.com/talentforge/insights/internal/observability/statsd"
)

// previewLen bounds the stored job description preview.
const previewLen = 100

// ScoreCacheService layers the content-addressed score cache over the profile
// repository. A score is recomputed only when no entry exists for its
// fingerprint or the caller forces it; a failed recompute never touches a
// previously cached entry.
type ScoreCacheService struct {
	repo   core.ProfileRepository
	sink   statsd.Sink
	logger *slog.Logger
	time   data.TimeProvider

	group singleflight.Group
}

// ScoreCacheServiceOptions groups dependencies for ScoreCacheService.
type ScoreCacheServiceOptions struct {
	Repo   core.ProfileRepository // Required: profile repository
	Sink   statsd.Sink            // Optional: metrics sink
	Logger *slog.Logger           // Optional: structured logger
	Time   data.TimeProvider      // Optional: clock override for tests
}

// NewScoreCacheService constructs a ScoreCacheService.
func NewScoreCacheService(opts ScoreCacheServiceOptions) (*ScoreCacheService, error) {
	if opts.Repo == nil {
		return nil, errors.New("profile repository is required")
	}

	tp := opts.Time
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "score_cache")
	}

	return &ScoreCacheService{
		repo:   opts.Repo,
		sink:   opts.Sink,
		logger: logger,
		time:   tp,
	}, nil
}

// Lookup returns the cached entry for (profileID, key), or nil when the
// profile exists but carries no entry for the key.
func (s *ScoreCacheService) Lookup(
	ctx context.Context,
	profileID, key string,
) (*model.CachedScore, error) {
	doc, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	entry, ok := doc.CachedScoreAt(key)
	if !ok {
		metrics.EmitCacheLookup(s.sink, metrics.ResultMiss)
		return nil, nil
	}
	metrics.EmitCacheLookup(s.sink, metrics.ResultHit)
	return &entry, nil
}

// Store merges a score entry under key via the repository's atomic
// read-modify-write. Sibling keys are never dropped.
func (s *ScoreCacheService) Store(
	ctx context.Context,
	profileID, key, preview string,
	score model.ATSScore,
) (*model.CachedScore, error) {
	if err := score.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid score")
	}

	entry := model.CachedScore{
		JobDescriptionPreview: truncatePreview(preview),
		Score:                 score,
		ComputedAt:            s.time.Now().UTC(),
	}

	_, err := s.repo.Update(ctx, profileID, func(doc *model.ProfileDocument) error {
		doc.PutCachedScore(key, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.EmitCacheStore(s.sink)
	if s.logger != nil {
		s.logger.DebugContext(ctx, "score cached", "profile_id", profileID, "key", key)
	}
	return &entry, nil
}

// EvaluateParams identifies one scoring request.
type EvaluateParams struct {
	ProfileID      string
	JobDescription string
	// Force recomputes and overwrites this request's entry even on a hit.
	Force bool
}

// EvaluateResult is the outcome of Evaluate.
type EvaluateResult struct {
	Key    string
	Entry  model.CachedScore
	Cached bool // true when served from the cache without computing
}

// Evaluate derives the fingerprint for the request and returns the cached
// entry on a hit. On a miss (or Force) it runs compute exactly once, stores
// the result and returns it. Concurrent calls for the same (profile, key) are
// collapsed so the expensive computation runs once.
func (s *ScoreCacheService) Evaluate(
	ctx context.Context,
	params EvaluateParams,
	compute func(ctx context.Context) (*model.ATSScore, error),
) (*EvaluateResult, error) {
	if strings.TrimSpace(params.ProfileID) == "" {
		return nil, apperrors.Validation("profile id is required")
	}
	if strings.TrimSpace(params.JobDescription) == "" {
		return nil, apperrors.ValidationField("job_description", "job description is required")
	}
	if compute == nil {
		return nil, apperrors.Validation("compute function is required")
	}

	key := fingerprint.Derive(params.JobDescription)

	if !params.Force {
		entry, err := s.Lookup(ctx, params.ProfileID, key)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return &EvaluateResult{Key: key, Entry: *entry, Cached: true}, nil
		}
	}

	flightKey := fingerprint.DeriveParams(params.ProfileID, key)
	v, err, shared := s.group.Do(flightKey, func() (any, error) {
		score, computeErr := compute(ctx)
		if computeErr != nil {
			return nil, computeErr
		}
		entry, storeErr := s.Store(ctx, params.ProfileID, key, params.JobDescription, *score)
		if storeErr != nil {
			return nil, storeErr
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	entry := v.(*model.CachedScore)
	if s.logger != nil && shared {
		s.logger.DebugContext(ctx, "score evaluation deduplicated",
			"profile_id", params.ProfileID, "key", key)
	}
	return &EvaluateResult{Key: key, Entry: *entry}, nil
}

// History returns the full score cache of a profile keyed by fingerprint.
func (s *ScoreCacheService) History(
	ctx context.Context,
	profileID string,
) (map[string]model.CachedScore, error) {
	doc, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return doc.ScoreCache, nil
}

// ClearKey removes a single cache entry. Used by the admin CLI.
func (s *ScoreCacheService) ClearKey(ctx context.Context, profileID, key string) error {
	_, err := s.repo.Update(ctx, profileID, func(doc *model.ProfileDocument) error {
		delete(doc.ScoreCache, key)
		return nil
	})
	return err
}

func truncatePreview(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen])
}
