// Package devseed populates a development environment with sample profile
// documents so the API can be exercised without an extraction service.
package devseed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/domain/fingerprint"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
)

// Run writes the sample profiles into the repository. Profiles that already
// exist are left untouched so the command is safe to re-run.
func Run(ctx context.Context, repo core.ProfileRepository, logger *slog.Logger) error {
	seeded := 0
	skipped := 0
	for _, doc := range sampleProfiles() {
		err := repo.Create(ctx, doc)
		switch {
		case err == nil:
			seeded++
		case apperrors.IsConflict(err):
			skipped++
		default:
			return fmt.Errorf("seed profile %s: %w", doc.ID, err)
		}
	}
	if logger != nil {
		logger.InfoContext(ctx, "development seeding complete",
			"seeded", seeded, "skipped_existing", skipped)
	}
	if seeded == 0 && skipped == 0 {
		return errors.New("no sample profiles defined")
	}
	return nil
}

func sampleProfiles() []*model.ProfileDocument {
	now := time.Now().UTC()
	jd := "Senior Backend Engineer building Go services on Kubernetes"

	backend := &model.ProfileDocument{
		ID:      "seed-backend-engineer",
		Version: 1,
		Resume: model.Resume{
			FullName: "Dana Whitfield",
			Contact: &model.Contact{
				Email:    "dana.whitfield@example.com",
				Location: "Berlin, Germany",
			},
			Summary: "Backend engineer focused on distributed systems and developer tooling.",
			Skills:  []string{"go", "postgresql", "kubernetes", "redis", "grpc"},
			Experience: []model.ExperienceItem{
				{
					JobTitle:  "Senior Backend Engineer",
					Company:   "Northwind Logistics",
					StartDate: "2021-04",
					EndDate:   "present",
					Responsibilities: []string{
						"Owns the order routing service handling 2k req/s",
						"Led the migration from a cron-based pipeline to event-driven workers",
					},
				},
				{
					JobTitle:  "Software Engineer",
					Company:   "Contoso Labs",
					StartDate: "2018-01",
					EndDate:   "2021-03",
				},
			},
			Education: []model.EducationItem{
				{Degree: "BSc Computer Science", Institution: "TU Berlin", EndDate: "2017"},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	backend.PutCachedScore(fingerprint.Derive(jd), model.CachedScore{
		JobDescriptionPreview: jd,
		Score: model.ATSScore{
			OverallScore:    82,
			Strengths:       []string{"strong Go and Kubernetes background"},
			Gaps:            []string{"no Terraform experience listed"},
			MatchedKeywords: []string{"go", "kubernetes"},
			Summary:         "Solid match for senior backend roles.",
		},
		ComputedAt: now,
	})
	backend.AppendInsight(model.InsightKindSalary, model.InsightEntry{
		ID:          "seed-salary-1",
		ComputedAt:  now,
		ExecutionID: "seed-exec-1",
		Salary: &model.SalaryRecommendation{
			RecommendedRange: model.SalaryRange{
				MinSalary: 78000, MaxSalary: 98000, Currency: "EUR", Period: "year",
			},
			MarketMedian:    88000,
			Percentile25:    80000,
			Percentile75:    95000,
			KeyFactors:      []string{"7 years of experience", "Berlin market"},
			SourceDomains:   []string{"levels.fyi", "glassdoor.com"},
			AnalysisSummary: "Berlin senior backend salaries cluster around the high 80s.",
		},
	})

	dataEng := &model.ProfileDocument{
		ID:      "seed-data-engineer",
		Version: 1,
		Resume: model.Resume{
			FullName: "Priya Raman",
			Contact: &model.Contact{
				Email:    "priya.raman@example.com",
				Location: "Toronto, Canada",
			},
			Summary: "Data engineer moving toward platform work.",
			Skills:  []string{"python", "sql", "airflow", "spark"},
			Experience: []model.ExperienceItem{
				{
					JobTitle:  "Data Engineer",
					Company:   "Maple Analytics",
					StartDate: "2022-06",
					EndDate:   "present",
				},
			},
			Certifications: []string{"GCP Professional Data Engineer"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	return []*model.ProfileDocument{backend, dataEng}
}
