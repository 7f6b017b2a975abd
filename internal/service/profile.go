package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
)

// ProfileService manages profile document lifecycle: ingestion through the
// extraction boundary, retrieval and deletion.
type ProfileService struct {
	repo      core.ProfileRepository
	extractor core.Extractor
	logger    *slog.Logger
}

// ProfileServiceOptions groups dependencies for ProfileService.
type ProfileServiceOptions struct {
	Repo      core.ProfileRepository // Required: profile repository
	Extractor core.Extractor         // Optional: required only for Ingest
	Logger    *slog.Logger           // Optional: structured logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(opts ProfileServiceOptions) (*ProfileService, error) {
	if opts.Repo == nil {
		return nil, errors.New("profile repository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "profile_service")
	}

	return &ProfileService{
		repo:      opts.Repo,
		extractor: opts.Extractor,
		logger:    logger,
	}, nil
}

// Ingest extracts structured fields from an uploaded document and persists a
// new profile with a freshly minted id.
func (s *ProfileService) Ingest(
	ctx context.Context,
	filename string,
	data []byte,
) (*model.ProfileDocument, error) {
	if s.extractor == nil {
		return nil, apperrors.Internal("no extractor configured")
	}
	if len(data) == 0 {
		return nil, apperrors.ValidationField("file", "document data is required")
	}

	resume, err := s.extractor.Extract(ctx, core.ExtractRequest{Filename: filename, Data: data})
	if err != nil {
		return nil, err
	}

	doc := &model.ProfileDocument{
		ID:     uuid.NewString(),
		Resume: *resume,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "profile ingested",
			"profile_id", doc.ID, "filename", filename)
	}
	return doc, nil
}

// Reingest re-extracts an uploaded document and amends the base fields of an
// existing profile. Score cache and insight history are left untouched.
func (s *ProfileService) Reingest(
	ctx context.Context,
	profileID, filename string,
	data []byte,
) (*model.ProfileDocument, error) {
	if s.extractor == nil {
		return nil, apperrors.Internal("no extractor configured")
	}
	if len(data) == 0 {
		return nil, apperrors.ValidationField("file", "document data is required")
	}

	resume, err := s.extractor.Extract(ctx, core.ExtractRequest{Filename: filename, Data: data})
	if err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, profileID, func(doc *model.ProfileDocument) error {
		doc.Resume = *resume
		return nil
	})
}

// Get retrieves a profile by id.
func (s *ProfileService) Get(ctx context.Context, profileID string) (*model.ProfileDocument, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, apperrors.Validation("profile id is required")
	}
	return s.repo.GetByID(ctx, profileID)
}

// List returns a page of profiles, newest first.
func (s *ProfileService) List(ctx context.Context, limit, offset int) ([]*model.ProfileDocument, error) {
	return s.repo.List(ctx, limit, offset)
}

// Delete removes a profile and all its artifacts.
func (s *ProfileService) Delete(ctx context.Context, profileID string) error {
	if strings.TrimSpace(profileID) == "" {
		return apperrors.Validation("profile id is required")
	}
	return s.repo.Delete(ctx, profileID)
}
