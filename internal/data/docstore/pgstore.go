package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/data"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
)

// defaultUpdateRetries bounds the optimistic-concurrency retry loop before a
// Conflict is surfaced to the caller.
const defaultUpdateRetries = 5

// PGStore persists profile documents in PostgreSQL, one row per document
// with the serialized document as JSONB and a version stamp. Update uses
// optimistic concurrency: the version is compared at write time and the
// read-modify-write is retried on mismatch.
type PGStore struct {
	db      *sql.DB
	logger  *slog.Logger
	time    data.TimeProvider
	retries int
}

var _ core.ProfileRepository = (*PGStore)(nil)

// PGStoreOptions groups dependencies for NewPGStore.
type PGStoreOptions struct {
	DB            *sql.DB           // Required: database handle
	Logger        *slog.Logger      // Optional: structured logger
	Time          data.TimeProvider // Optional: clock override for tests
	UpdateRetries int               // Optional: override conflict retry budget
}

// NewPGStore constructs a PGStore.
func NewPGStore(opts PGStoreOptions) (*PGStore, error) {
	if opts.DB == nil {
		return nil, errors.New("database handle is required")
	}

	tp := opts.Time
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	retries := opts.UpdateRetries
	if retries <= 0 {
		retries = defaultUpdateRetries
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "pg_docstore")
	}

	return &PGStore{
		db:      opts.DB,
		logger:  logger,
		time:    tp,
		retries: retries,
	}, nil
}

// Create persists a new document. Fails with Conflict if the id exists.
func (s *PGStore) Create(ctx context.Context, doc *model.ProfileDocument) error {
	now := s.time.Now().UTC()
	doc.Version = 1
	doc.CreatedAt = now
	doc.UpdatedAt = now

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode profile %s: %w", doc.ID, err)
	}

	const q = `
		INSERT INTO profiles (id, doc, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.db.ExecContext(ctx, q, doc.ID, raw, doc.Version, doc.CreatedAt, doc.UpdatedAt); err != nil {
		return apperrors.MapDBError(err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "profile created", "id", doc.ID)
	}
	return nil
}

// GetByID loads a document. Fails with NotFound if the id is unknown.
func (s *PGStore) GetByID(ctx context.Context, id string) (*model.ProfileDocument, error) {
	const q = `SELECT doc, version FROM profiles WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, q, id), id)
}

func (s *PGStore) scanOne(row *sql.Row, id string) (*model.ProfileDocument, error) {
	var raw []byte
	var version int64
	if err := row.Scan(&raw, &version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("profile %s not found", id)
		}
		return nil, apperrors.MapDBError(err)
	}

	var doc model.ProfileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	// The version column is authoritative.
	doc.Version = version
	return &doc, nil
}

// Update atomically applies mutate to the current document. The write is
// guarded by a version compare; on mismatch the whole read-modify-write is
// retried up to the configured budget, then surfaced as Conflict.
func (s *PGStore) Update(
	ctx context.Context,
	id string,
	mutate func(doc *model.ProfileDocument) error,
) (*model.ProfileDocument, error) {
	for attempt := range s.retries {
		doc, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		prevVersion := doc.Version

		if err := mutate(doc); err != nil {
			return nil, err
		}

		doc.Version = prevVersion + 1
		doc.UpdatedAt = s.time.Now().UTC()

		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode profile %s: %w", id, err)
		}

		const q = `
			UPDATE profiles
			SET doc = $1, version = $2, updated_at = $3
			WHERE id = $4 AND version = $5`
		res, err := s.db.ExecContext(ctx, q, raw, doc.Version, doc.UpdatedAt, id, prevVersion)
		if err != nil {
			return nil, apperrors.MapDBError(err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("update profile %s: %w", id, err)
		}
		if affected == 1 {
			if s.logger != nil {
				s.logger.DebugContext(ctx, "profile updated",
					"id", id,
					"version", doc.Version,
					"attempt", attempt+1,
				)
			}
			return doc, nil
		}

		// Version moved underneath us; re-read and retry.
		if s.logger != nil {
			s.logger.DebugContext(ctx, "profile update conflicted, retrying",
				"id", id,
				"expected_version", prevVersion,
				"attempt", attempt+1,
			)
		}
	}

	return nil, apperrors.Conflictf("profile %s: update retries exhausted", id)
}

// Delete removes a document. Fails with NotFound if the id is unknown.
func (s *PGStore) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM profiles WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	if affected == 0 {
		return apperrors.NotFoundf("profile %s not found", id)
	}
	return nil
}

// List returns stored documents ordered by creation time descending.
func (s *PGStore) List(ctx context.Context, limit, offset int) ([]*model.ProfileDocument, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT doc, version FROM profiles
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*model.ProfileDocument
	for rows.Next() {
		var raw []byte
		var version int64
		if err := rows.Scan(&raw, &version); err != nil {
			return nil, apperrors.MapDBError(err)
		}
		var doc model.ProfileDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		doc.Version = version
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return docs, nil
}
