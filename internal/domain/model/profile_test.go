package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileDocument_ScoreCache(t *testing.T) {
	doc := &ProfileDocument{ID: "p1"}

	_, ok := doc.CachedScoreAt("abc")
	assert.False(t, ok)

	entry := CachedScore{
		JobDescriptionPreview: "Senior Go engineer...",
		Score:                 ATSScore{OverallScore: 85},
		ComputedAt:            time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	doc.PutCachedScore("abc", entry)

	got, ok := doc.CachedScoreAt("abc")
	require.True(t, ok)
	assert.Equal(t, 85, got.Score.OverallScore)

	// sibling keys are untouched by further puts
	doc.PutCachedScore("def", CachedScore{Score: ATSScore{OverallScore: 42}})
	got, ok = doc.CachedScoreAt("abc")
	require.True(t, ok)
	assert.Equal(t, 85, got.Score.OverallScore)
}

func TestProfileDocument_InsightHistoryAppendOnly(t *testing.T) {
	doc := &ProfileDocument{ID: "p1"}

	_, ok := doc.LatestInsight(InsightKindSalary)
	assert.False(t, ok)

	for i := 1; i <= 3; i++ {
		doc.AppendInsight(InsightKindSalary, InsightEntry{
			ID:     "entry-" + string(rune('0'+i)),
			Salary: &SalaryRecommendation{MarketMedian: float64(100000 * i)},
		})
	}

	entries := doc.InsightHistory[InsightKindSalary]
	require.Len(t, entries, 3)
	assert.Equal(t, float64(100000), entries[0].Salary.MarketMedian)
	assert.Equal(t, float64(300000), entries[2].Salary.MarketMedian)

	latest, ok := doc.LatestInsight(InsightKindSalary)
	require.True(t, ok)
	assert.Equal(t, "entry-3", latest.ID)
}

func TestProfileDocument_Clone(t *testing.T) {
	doc := &ProfileDocument{
		ID:      "p1",
		Version: 3,
		Resume:  Resume{FullName: "Ada Lovelace", Skills: []string{"Go", "SQL"}},
	}
	doc.PutCachedScore("abc", CachedScore{Score: ATSScore{OverallScore: 70}})

	clone, err := doc.Clone()
	require.NoError(t, err)

	clone.Resume.Skills[0] = "Rust"
	clone.PutCachedScore("abc", CachedScore{Score: ATSScore{OverallScore: 1}})

	assert.Equal(t, "Go", doc.Resume.Skills[0])
	got, _ := doc.CachedScoreAt("abc")
	assert.Equal(t, 70, got.Score.OverallScore)
}

func TestResume_Heuristics(t *testing.T) {
	r := &Resume{
		Contact: &Contact{Location: "Berlin, DE"},
		Skills:  []string{"Go", "Kubernetes", "Postgres"},
		Experience: []ExperienceItem{
			{JobTitle: "Staff Engineer"},
			{JobTitle: "Senior Engineer"},
		},
	}

	assert.Equal(t, "Staff Engineer", r.CurrentRole("Software Engineer"))
	assert.Equal(t, "Berlin, DE", r.Location("United States"))
	assert.Equal(t, 4, r.EstimatedExperienceYears())
	assert.Equal(t, []string{"Go", "Kubernetes"}, r.TopSkills(2))
	assert.Equal(t, []string{"Go", "Kubernetes", "Postgres"}, r.TopSkills(10))

	empty := &Resume{}
	assert.Equal(t, "Software Engineer", empty.CurrentRole("Software Engineer"))
	assert.Equal(t, "United States", empty.Location("United States"))
	assert.Nil(t, empty.TopSkills(5))
}

func TestInsightEntry_Kind(t *testing.T) {
	salary := &InsightEntry{Salary: &SalaryRecommendation{}}
	kind, ok := salary.Kind()
	require.True(t, ok)
	assert.Equal(t, InsightKindSalary, kind)

	upskilling := &InsightEntry{Upskilling: &UpskillingReport{}}
	kind, ok = upskilling.Kind()
	require.True(t, ok)
	assert.Equal(t, InsightKindUpskilling, kind)

	_, ok = (&InsightEntry{}).Kind()
	assert.False(t, ok)
}

func TestInsightKind_UnmarshalText(t *testing.T) {
	var k InsightKind
	require.NoError(t, k.UnmarshalText([]byte("Salary")))
	assert.Equal(t, InsightKindSalary, k)

	assert.Error(t, k.UnmarshalText([]byte("astrology")))
}

func TestSalaryRecommendation_Validate(t *testing.T) {
	rec := &SalaryRecommendation{
		RecommendedRange: SalaryRange{MinSalary: 120000, MaxSalary: 180000, Currency: "USD", Period: "annual"},
		MarketMedian:     150000,
	}
	require.NoError(t, rec.Validate())

	rec.RecommendedRange.MinSalary = 200000
	assert.Error(t, rec.Validate())
}

func TestATSScore_Validate(t *testing.T) {
	ninety := 90
	bad := 120

	score := &ATSScore{OverallScore: 85, SectionScores: SectionScores{SkillsMatch: &ninety}}
	require.NoError(t, score.Validate())

	score.SectionScores.SkillsMatch = &bad
	assert.Error(t, score.Validate())

	assert.Error(t, (&ATSScore{OverallScore: -1}).Validate())
}
