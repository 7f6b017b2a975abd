package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// InsightKind identifies the kind of insight artifact stored in a profile's
// history.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type InsightKind string

const (
	// InsightKindSalary is a market-based salary recommendation.
	InsightKindSalary InsightKind = "salary"
	// InsightKindUpskilling is a skill-gap and learning-path report.
	InsightKindUpskilling InsightKind = "upskilling"
)

// Valid returns true if the InsightKind is valid.
func (k InsightKind) Valid() bool {
	return k == InsightKindSalary || k == InsightKindUpskilling
}

// UnmarshalText implements encoding.TextUnmarshaler for InsightKind to allow
// env and path-parameter parsing.
func (k *InsightKind) UnmarshalText(text []byte) error {
	v := InsightKind(strings.ToLower(strings.TrimSpace(string(text))))
	if v.Valid() {
		*k = v
		return nil
	}
	return fmt.Errorf("invalid InsightKind: %q", string(text))
}

// ErrScoreOutOfRange indicates a score value outside 0-100.
var ErrScoreOutOfRange = errors.New("score out of range 0-100")

// InsightEntry is one element of a profile's insight history. Exactly one of
// the payload fields is set, matching the entry's kind.
type InsightEntry struct {
	ID          string    `json:"id"`
	ComputedAt  time.Time `json:"computed_at"`
	ExecutionID string    `json:"execution_id,omitempty"`

	Salary     *SalaryRecommendation `json:"salary,omitempty"`
	Upskilling *UpskillingReport     `json:"upskilling,omitempty"`
}

// Kind returns the kind implied by the populated payload field.
func (e *InsightEntry) Kind() (InsightKind, bool) {
	switch {
	case e.Salary != nil:
		return InsightKindSalary, true
	case e.Upskilling != nil:
		return InsightKindUpskilling, true
	default:
		return "", false
	}
}

// SalaryRange is a salary band with currency information.
type SalaryRange struct {
	MinSalary float64 `json:"min_salary"`
	MaxSalary float64 `json:"max_salary"`
	Currency  string  `json:"currency"`
	Period    string  `json:"period"`
}

// Validate checks range ordering.
func (r *SalaryRange) Validate() error {
	if r.MinSalary > r.MaxSalary {
		return fmt.Errorf("min_salary (%v) cannot exceed max_salary (%v)", r.MinSalary, r.MaxSalary)
	}
	return nil
}

// SalaryRecommendation is a market-based salary recommendation produced by
// the remote research agent.
type SalaryRecommendation struct {
	RecommendedRange SalaryRange `json:"recommended_range"`
	MarketMedian     float64     `json:"market_median"`
	Percentile25     float64     `json:"percentile_25"`
	Percentile75     float64     `json:"percentile_75"`
	KeyFactors       []string    `json:"key_factors,omitempty"`
	MarketTrends     []string    `json:"market_trends,omitempty"`
	Sources          []string    `json:"sources,omitempty"`
	// SourceDomains is the deduplicated list of registrable domains the
	// sources resolve to, for attribution summaries.
	SourceDomains   []string `json:"source_domains,omitempty"`
	AnalysisSummary string   `json:"analysis_summary,omitempty"`
}

// Validate checks structural soundness of the recommendation.
func (s *SalaryRecommendation) Validate() error {
	if err := s.RecommendedRange.Validate(); err != nil {
		return fmt.Errorf("recommended_range: %w", err)
	}
	if s.MarketMedian < 0 || s.Percentile25 < 0 || s.Percentile75 < 0 {
		return errors.New("salary figures cannot be negative")
	}
	return nil
}

// SkillGap describes one gap between current skills and a target role.
type SkillGap struct {
	Skill        string `json:"skill"`
	Importance   string `json:"importance,omitempty"`
	CurrentLevel string `json:"current_level,omitempty"`
	TargetLevel  string `json:"target_level,omitempty"`
}

// LearningResource is a single recommended learning resource.
type LearningResource struct {
	Title          string  `json:"title"`
	URL            string  `json:"url,omitempty"`
	Type           string  `json:"type,omitempty"`
	Description    string  `json:"description,omitempty"`
	Difficulty     string  `json:"difficulty,omitempty"`
	EstimatedHours float64 `json:"estimated_hours,omitempty"`
}

// LearningPathStep is one ordered step of a learning path.
type LearningPathStep struct {
	Topic         string   `json:"topic"`
	Order         int      `json:"order"`
	DurationWeeks float64  `json:"duration_weeks,omitempty"`
	Resources     []string `json:"resources,omitempty"`
}

// ProjectSuggestion is a practice project for skill building.
type ProjectSuggestion struct {
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	SkillsPracticed []string `json:"skills_practiced,omitempty"`
	Complexity      string   `json:"complexity,omitempty"`
	EstimatedHours  float64  `json:"estimated_hours,omitempty"`
}

// UpskillingReport is the structured upskilling artifact.
type UpskillingReport struct {
	SkillGaps         []SkillGap          `json:"skill_gaps,omitempty"`
	LearningResources []LearningResource  `json:"learning_resources,omitempty"`
	LearningPath      []LearningPathStep  `json:"learning_path,omitempty"`
	PracticeProjects  []ProjectSuggestion `json:"practice_projects,omitempty"`
	Summary           string              `json:"summary,omitempty"`
}

// Validate checks structural soundness of the report.
func (u *UpskillingReport) Validate() error {
	for i, step := range u.LearningPath {
		if step.Topic == "" {
			return fmt.Errorf("learning_path[%d]: topic is required", i)
		}
	}
	return nil
}
