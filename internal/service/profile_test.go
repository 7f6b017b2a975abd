package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/data/docstore"
	"github.com/talentforge/insights/internal/domain/fingerprint"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
	"github.com/talentforge/insights/internal/mocks/coremocks"
)

func newTestProfileService(
	t *testing.T,
	extractor core.Extractor,
) (*ProfileService, core.ProfileRepository) {
	t.Helper()
	repo, err := docstore.NewFileStore(docstore.FileStoreOptions{Dir: t.TempDir()})
	require.NoError(t, err)
	svc, err := NewProfileService(ProfileServiceOptions{Repo: repo, Extractor: extractor})
	require.NoError(t, err)
	return svc, repo
}

func TestProfile_Ingest(t *testing.T) {
	ctrl := gomock.NewController(t)
	extractor := coremocks.NewMockExtractor(ctrl)
	svc, repo := newTestProfileService(t, extractor)
	ctx := context.Background()

	raw := []byte("%PDF-1.7 fake resume bytes")
	extractor.EXPECT().
		Extract(ctx, core.ExtractRequest{Filename: "resume.pdf", Data: raw}).
		Return(&model.Resume{
			FullName: "Kim Osei",
			Skills:   []string{"go", "postgres"},
		}, nil)

	doc, err := svc.Ingest(ctx, "resume.pdf", raw)
	require.NoError(t, err)

	require.NoError(t, uuid.Validate(doc.ID))
	assert.Equal(t, "Kim Osei", doc.Resume.FullName)

	stored, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Resume, stored.Resume)
	assert.Equal(t, int64(1), stored.Version)
}

func TestProfile_IngestValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	extractor := coremocks.NewMockExtractor(ctrl)
	svc, _ := newTestProfileService(t, extractor)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "resume.pdf", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, "file", apperrors.GetField(err))
}

func TestProfile_IngestWithoutExtractor(t *testing.T) {
	svc, _ := newTestProfileService(t, nil)

	_, err := svc.Ingest(context.Background(), "resume.pdf", []byte("data"))
	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
}

func TestProfile_IngestExtractionFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	extractor := coremocks.NewMockExtractor(ctrl)
	svc, repo := newTestProfileService(t, extractor)
	ctx := context.Background()

	extractor.EXPECT().
		Extract(ctx, gomock.Any()).
		Return(nil, apperrors.Validation("unsupported document type"))

	_, err := svc.Ingest(ctx, "resume.xyz", []byte("data"))
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	docs, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestProfile_ReingestPreservesArtifacts(t *testing.T) {
	ctrl := gomock.NewController(t)
	extractor := coremocks.NewMockExtractor(ctrl)
	svc, repo := newTestProfileService(t, extractor)
	ctx := context.Background()

	// Existing profile with a cached score and a salary insight.
	key := fingerprint.Derive("Job description A")
	require.NoError(t, repo.Create(ctx, &model.ProfileDocument{
		ID:     "doc-1",
		Resume: model.Resume{FullName: "Old Name", Skills: []string{"java"}},
		ScoreCache: map[string]model.CachedScore{
			key: {Score: *scoreOf(85)},
		},
		InsightHistory: map[model.InsightKind][]model.InsightEntry{
			model.InsightKindSalary: {{ID: "ins-1", Salary: &model.SalaryRecommendation{}}},
		},
	}))

	extractor.EXPECT().
		Extract(ctx, gomock.Any()).
		Return(&model.Resume{FullName: "Kim Osei", Skills: []string{"go"}}, nil)

	doc, err := svc.Reingest(ctx, "doc-1", "resume-v2.pdf", []byte("new bytes"))
	require.NoError(t, err)

	assert.Equal(t, "Kim Osei", doc.Resume.FullName)
	assert.Equal(t, []string{"go"}, doc.Resume.Skills)
	assert.Equal(t, int64(2), doc.Version)

	// Derived artifacts survive a re-extraction.
	entry, ok := doc.CachedScoreAt(key)
	require.True(t, ok)
	assert.Equal(t, 85, entry.Score.OverallScore)
	require.Len(t, doc.InsightHistory[model.InsightKindSalary], 1)
	assert.Equal(t, "ins-1", doc.InsightHistory[model.InsightKindSalary][0].ID)
}

func TestProfile_ReingestMissingProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	extractor := coremocks.NewMockExtractor(ctrl)
	svc, _ := newTestProfileService(t, extractor)
	ctx := context.Background()

	extractor.EXPECT().
		Extract(ctx, gomock.Any()).
		Return(&model.Resume{FullName: "Kim Osei"}, nil)

	_, err := svc.Reingest(ctx, "ghost", "resume.pdf", []byte("data"))
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestProfile_GetAndDeleteValidation(t *testing.T) {
	svc, repo := newTestProfileService(t, nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, "  ")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	err = svc.Delete(ctx, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	seedProfile(t, repo, "doc-1")
	doc, err := svc.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.ID)

	require.NoError(t, svc.Delete(ctx, "doc-1"))
	_, err = svc.Get(ctx, "doc-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
