package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/data"
	"github.com/talentforge/insights/internal/domain/fingerprint"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
	"github.com/talentforge/insights/internal/observability/metrics"
	"github.com/talentforge/insights/internal/observability/statsd"
)

const (
	defaultSalaryKind     = "salary_research"
	defaultUpskillingKind = "upskilling_analysis"
	defaultInsightMaxWait = 5 * time.Minute
	defaultRole           = "Software Engineer"
	defaultLocation       = "Remote"
	topSkillCount         = 10
)

// InsightsService is the façade over both artifact paths: the cache-eligible
// ATS score and the append-only salary and upskilling insights.
type InsightsService struct {
	repo       core.ProfileRepository
	jobs       core.JobClient
	scorer     core.Scorer
	scoreCache *ScoreCacheService

	salaryKind     string
	upskillingKind string
	maxWait        time.Duration
	pollInterval   time.Duration

	sink   statsd.Sink
	logger *slog.Logger
	time   data.TimeProvider
}

// InsightsServiceOptions groups dependencies for InsightsService.
type InsightsServiceOptions struct {
	Repo       core.ProfileRepository // Required: profile repository
	Jobs       core.JobClient         // Required: job platform client
	Scorer     core.Scorer            // Required for ScoreResume
	ScoreCache *ScoreCacheService     // Required for ScoreResume

	SalaryKind     string        // Optional: salary workflow kind
	UpskillingKind string        // Optional: upskilling workflow kind
	MaxWait        time.Duration // Optional: sync wait budget per insight
	PollInterval   time.Duration // Optional: status poll interval

	Sink   statsd.Sink       // Optional: metrics sink
	Logger *slog.Logger      // Optional: structured logger
	Time   data.TimeProvider // Optional: clock override for tests
}

// NewInsightsService constructs an InsightsService.
func NewInsightsService(opts InsightsServiceOptions) (*InsightsService, error) {
	if opts.Repo == nil {
		return nil, errors.New("profile repository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("job client is required")
	}

	salaryKind := opts.SalaryKind
	if salaryKind == "" {
		salaryKind = defaultSalaryKind
	}
	upskillingKind := opts.UpskillingKind
	if upskillingKind == "" {
		upskillingKind = defaultUpskillingKind
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = defaultInsightMaxWait
	}

	tp := opts.Time
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "insights_service")
	}

	return &InsightsService{
		repo:           opts.Repo,
		jobs:           opts.Jobs,
		scorer:         opts.Scorer,
		scoreCache:     opts.ScoreCache,
		salaryKind:     salaryKind,
		upskillingKind: upskillingKind,
		maxWait:        maxWait,
		pollInterval:   opts.PollInterval,
		sink:           opts.Sink,
		logger:         logger,
		time:           tp,
	}, nil
}

// ScoreResume scores a profile against a job description through the score
// cache: a previously computed score for the same semantic request is
// returned without any external call unless force is set.
func (s *InsightsService) ScoreResume(
	ctx context.Context,
	profileID, jobDescription string,
	force bool,
) (*EvaluateResult, error) {
	if s.scorer == nil || s.scoreCache == nil {
		return nil, apperrors.Internal("scoring is not configured")
	}

	doc, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	return s.scoreCache.Evaluate(ctx,
		EvaluateParams{ProfileID: profileID, JobDescription: jobDescription, Force: force},
		func(ctx context.Context) (*model.ATSScore, error) {
			return s.scorer.Score(ctx, core.ScoreRequest{
				Resume:         doc.Resume,
				JobDescription: jobDescription,
			})
		})
}

// SalaryParams tunes a salary research request. Empty fields fall back to
// heuristics over the profile's base fields.
type SalaryParams struct {
	TargetRole string
	Location   string
}

// salaryInput is the wire input of the salary research workflow.
type salaryInput struct {
	Role            string   `json:"role"`
	Location        string   `json:"location"`
	ExperienceYears int      `json:"experience_years"`
	Skills          []string `json:"skills,omitempty"`
}

// SalaryRecommendation runs salary research synchronously and appends the
// result to the profile's history. The score cache is never consulted.
func (s *InsightsService) SalaryRecommendation(
	ctx context.Context,
	profileID string,
	params SalaryParams,
) (*model.InsightEntry, error) {
	doc, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	spec, err := s.salarySpec(doc, params)
	if err != nil {
		return nil, err
	}

	handle, err := s.runToCompletion(ctx, spec)
	if err != nil {
		return nil, err
	}

	rec, err := decodeSalaryOutputs(handle.Outputs)
	if err != nil {
		return nil, err
	}

	return s.appendEntry(ctx, profileID, model.InsightEntry{
		ID:          uuid.NewString(),
		ComputedAt:  s.time.Now().UTC(),
		ExecutionID: handle.ExecutionID,
		Salary:      rec,
	})
}

// StartSalaryResearch submits salary research without waiting. The returned
// handle's execution id can be polled with InsightStatus and persisted later
// with PersistSalaryResult.
func (s *InsightsService) StartSalaryResearch(
	ctx context.Context,
	profileID string,
	params SalaryParams,
) (*model.JobHandle, error) {
	doc, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	spec, err := s.salarySpec(doc, params)
	if err != nil {
		return nil, err
	}
	spec.Labels = map[string]string{"profile_id": profileID}

	start := s.time.Now()
	handle, err := s.jobs.Submit(ctx, spec)
	s.emitSubmission(spec.Kind, start, err)
	return handle, err
}

// InsightStatus reports the current state of a previously started execution.
func (s *InsightsService) InsightStatus(ctx context.Context, executionID string) (*model.JobHandle, error) {
	return s.jobs.PollOnce(ctx, executionID)
}

// PersistSalaryResult polls a previously started salary execution once and,
// when it has succeeded, appends the result to the profile's history.
func (s *InsightsService) PersistSalaryResult(
	ctx context.Context,
	profileID, executionID string,
) (*model.InsightEntry, error) {
	handle, err := s.jobs.PollOnce(ctx, executionID)
	if err != nil {
		return nil, err
	}

	switch handle.State {
	case model.ExecutionSucceeded:
	case model.ExecutionFailed:
		return nil, apperrors.RemoteFailuref("execution %s failed: %s", executionID, handle.Error)
	default:
		return nil, apperrors.Conflictf("execution %s not finished (state %s)", executionID, handle.State)
	}

	rec, err := decodeSalaryOutputs(handle.Outputs)
	if err != nil {
		return nil, err
	}

	return s.appendEntry(ctx, profileID, model.InsightEntry{
		ID:          uuid.NewString(),
		ComputedAt:  s.time.Now().UTC(),
		ExecutionID: handle.ExecutionID,
		Salary:      rec,
	})
}

// UpskillingParams tunes an upskilling analysis request.
type UpskillingParams struct {
	TargetRole string
	// JobDescription, when set, attaches the cached ATS score for this
	// description (if one exists) as additional agent context.
	JobDescription string
}

// upskillingInput is the wire input of the upskilling workflow.
type upskillingInput struct {
	CurrentRole string          `json:"current_role"`
	TargetRole  string          `json:"target_role"`
	Skills      []string        `json:"skills,omitempty"`
	ATSContext  *model.ATSScore `json:"ats_context,omitempty"`
}

// UpskillingReport runs upskilling analysis synchronously and appends the
// result to the profile's history.
func (s *InsightsService) UpskillingReport(
	ctx context.Context,
	profileID string,
	params UpskillingParams,
) (*model.InsightEntry, error) {
	doc, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	targetRole := strings.TrimSpace(params.TargetRole)
	if targetRole == "" {
		targetRole = doc.Resume.CurrentRole(defaultRole)
	}

	input := upskillingInput{
		CurrentRole: doc.Resume.CurrentRole(defaultRole),
		TargetRole:  targetRole,
		Skills:      doc.Resume.Skills,
	}
	if jd := strings.TrimSpace(params.JobDescription); jd != "" {
		if entry, ok := doc.CachedScoreAt(fingerprint.Derive(jd)); ok {
			input.ATSContext = &entry.Score
		}
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode upskilling input: %w", err)
	}

	handle, err := s.runToCompletion(ctx, model.WorkSpec{Kind: s.upskillingKind, Input: raw})
	if err != nil {
		return nil, err
	}

	var report model.UpskillingReport
	if err := json.Unmarshal(handle.Outputs, &report); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRemoteFailure, "decode upskilling outputs")
	}
	if err := report.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRemoteFailure, "invalid upskilling outputs")
	}

	return s.appendEntry(ctx, profileID, model.InsightEntry{
		ID:          uuid.NewString(),
		ComputedAt:  s.time.Now().UTC(),
		ExecutionID: handle.ExecutionID,
		Upskilling:  &report,
	})
}

// LatestInsight returns the most recent history entry of the given kind.
func (s *InsightsService) LatestInsight(
	ctx context.Context,
	profileID string,
	kind model.InsightKind,
) (*model.InsightEntry, error) {
	if !kind.Valid() {
		return nil, apperrors.ValidationField("kind", fmt.Sprintf("unknown insight kind %q", kind))
	}
	doc, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	entry, ok := doc.LatestInsight(kind)
	if !ok {
		return nil, apperrors.NotFoundf("profile %s has no %s insights", profileID, kind)
	}
	return &entry, nil
}

// InsightHistory returns the full ordered history of the given kind.
func (s *InsightsService) InsightHistory(
	ctx context.Context,
	profileID string,
	kind model.InsightKind,
) ([]model.InsightEntry, error) {
	if !kind.Valid() {
		return nil, apperrors.ValidationField("kind", fmt.Sprintf("unknown insight kind %q", kind))
	}
	doc, err := s.repo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return doc.InsightHistory[kind], nil
}

func (s *InsightsService) salarySpec(doc *model.ProfileDocument, params SalaryParams) (model.WorkSpec, error) {
	role := strings.TrimSpace(params.TargetRole)
	if role == "" {
		role = doc.Resume.CurrentRole(defaultRole)
	}
	location := strings.TrimSpace(params.Location)
	if location == "" {
		location = doc.Resume.Location(defaultLocation)
	}

	raw, err := json.Marshal(salaryInput{
		Role:            role,
		Location:        location,
		ExperienceYears: doc.Resume.EstimatedExperienceYears(),
		Skills:          doc.Resume.TopSkills(topSkillCount),
	})
	if err != nil {
		return model.WorkSpec{}, fmt.Errorf("encode salary input: %w", err)
	}
	return model.WorkSpec{Kind: s.salaryKind, Input: raw}, nil
}

// runToCompletion submits a spec and waits for a terminal result. A local
// timeout surfaces as a Timeout error carrying the execution id so callers
// can keep polling; a platform-reported failure surfaces as RemoteFailure.
func (s *InsightsService) runToCompletion(ctx context.Context, spec model.WorkSpec) (*model.JobHandle, error) {
	start := s.time.Now()
	handle, err := s.jobs.Submit(ctx, spec)
	s.emitSubmission(spec.Kind, start, err)
	if err != nil {
		return nil, err
	}

	waitStart := s.time.Now()
	handle, err = s.jobs.Await(ctx, handle.ExecutionID, core.AwaitOptions{
		MaxWait:      s.maxWait,
		PollInterval: s.pollInterval,
	})
	if err != nil {
		return nil, err
	}
	metrics.EmitAwait(s.sink, metrics.AwaitMetric{
		Kind:     spec.Kind,
		State:    string(handle.State),
		Duration: s.time.Now().Sub(waitStart),
	})

	switch handle.State {
	case model.ExecutionSucceeded:
		return handle, nil
	case model.ExecutionTimedOut:
		return nil, apperrors.Timeout(
			fmt.Sprintf("execution %s did not finish within %s", handle.ExecutionID, s.maxWait))
	case model.ExecutionFailed:
		return nil, apperrors.RemoteFailuref("execution %s failed: %s", handle.ExecutionID, handle.Error)
	default:
		return nil, apperrors.RemoteFailuref("execution %s ended in state %s", handle.ExecutionID, handle.State)
	}
}

func (s *InsightsService) appendEntry(
	ctx context.Context,
	profileID string,
	entry model.InsightEntry,
) (*model.InsightEntry, error) {
	kind, ok := entry.Kind()
	if !ok {
		return nil, apperrors.Internal("insight entry carries no payload")
	}

	_, err := s.repo.Update(ctx, profileID, func(doc *model.ProfileDocument) error {
		doc.AppendInsight(kind, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "insight appended",
			"profile_id", profileID, "kind", kind, "execution_id", entry.ExecutionID)
	}
	return &entry, nil
}

func (s *InsightsService) emitSubmission(kind string, start time.Time, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitSubmission(s.sink, metrics.SubmissionMetric{
		Kind:     kind,
		Result:   result,
		Duration: s.time.Now().Sub(start),
		Err:      err,
	})
}

// decodeSalaryOutputs validates the raw agent result into the typed artifact
// and fills the source domain attribution.
func decodeSalaryOutputs(raw json.RawMessage) (*model.SalaryRecommendation, error) {
	var rec model.SalaryRecommendation
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRemoteFailure, "decode salary outputs")
	}
	if err := rec.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeRemoteFailure, "invalid salary outputs")
	}
	rec.SourceDomains = SourceDomains(rec.Sources)
	return &rec, nil
}

// SourceDomains reduces source URLs to their deduplicated registrable domains
// (e.g. "https://data.example.co.uk/x" -> "example.co.uk"), sorted for stable
// output. Unparseable sources are skipped.
func SourceDomains(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		host := src
		if u, err := url.Parse(src); err == nil && u.Host != "" {
			host = u.Hostname()
		}
		host = strings.TrimPrefix(strings.ToLower(host), "www.")
		domain, err := publicsuffix.EffectiveTLDPlusOne(host)
		if err != nil {
			continue
		}
		seen[domain] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}

	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
