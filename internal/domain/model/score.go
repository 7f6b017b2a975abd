package model

// ATSScore is the structured result of scoring a profile against a job
// description. Scores are 0-100.
type ATSScore struct {
	OverallScore    int           `json:"overall_score"`
	SectionScores   SectionScores `json:"section_scores"`
	Strengths       []string      `json:"strengths,omitempty"`
	Gaps            []string      `json:"gaps,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`
	MissingKeywords []string      `json:"missing_keywords,omitempty"`
	MatchedKeywords []string      `json:"matched_keywords,omitempty"`
	Summary         string        `json:"summary,omitempty"`
}

// SectionScores is the per-section breakdown of an ATS score. Nil means the
// section was not evaluated.
type SectionScores struct {
	SkillsMatch         *int `json:"skills_match,omitempty"`
	ExperienceRelevance *int `json:"experience_relevance,omitempty"`
	EducationFit        *int `json:"education_fit,omitempty"`
	KeywordOptimization *int `json:"keyword_optimization,omitempty"`
}

// Validate checks score bounds.
func (s *ATSScore) Validate() error {
	if s.OverallScore < 0 || s.OverallScore > 100 {
		return ErrScoreOutOfRange
	}
	for _, v := range []*int{
		s.SectionScores.SkillsMatch,
		s.SectionScores.ExperienceRelevance,
		s.SectionScores.EducationFit,
		s.SectionScores.KeywordOptimization,
	} {
		if v != nil && (*v < 0 || *v > 100) {
			return ErrScoreOutOfRange
		}
	}
	return nil
}
