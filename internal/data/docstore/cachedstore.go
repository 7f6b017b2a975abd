package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/talentforge/insights/internal/core"
	"github.com/talentforge/insights/internal/domain/model"
)

const (
	cacheKeyPrefix  = "profile:"
	defaultCacheTTL = 15 * time.Minute
)

// CachedStore is a read-through cache in front of a ProfileRepository. Reads
// are served from the cache when possible; every write refreshes or drops the
// cached entry. Cache failures never fail the request, the inner repository
// stays the source of truth.
type CachedStore struct {
	inner  core.ProfileRepository
	cache  core.CacheRepository
	logger *slog.Logger
	ttl    time.Duration
}

var _ core.ProfileRepository = (*CachedStore)(nil)

// CachedStoreOptions groups dependencies for NewCachedStore.
type CachedStoreOptions struct {
	Inner  core.ProfileRepository // Required: backing repository
	Cache  core.CacheRepository   // Required: cache layer
	Logger *slog.Logger           // Optional: structured logger
	TTL    time.Duration          // Optional: cache entry lifetime
}

// NewCachedStore constructs a CachedStore.
func NewCachedStore(opts CachedStoreOptions) (*CachedStore, error) {
	if opts.Inner == nil {
		return nil, errors.New("inner repository is required")
	}
	if opts.Cache == nil {
		return nil, errors.New("cache repository is required")
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "cached_docstore")
	}

	return &CachedStore{
		inner:  opts.Inner,
		cache:  opts.Cache,
		logger: logger,
		ttl:    ttl,
	}, nil
}

func cacheKey(id string) string { return cacheKeyPrefix + id }

// Create writes through to the inner repository and primes the cache.
func (s *CachedStore) Create(ctx context.Context, doc *model.ProfileDocument) error {
	if err := s.inner.Create(ctx, doc); err != nil {
		return err
	}
	s.fill(ctx, doc)
	return nil
}

// GetByID serves from the cache, falling back to the inner repository on a
// miss or on a cache error.
func (s *CachedStore) GetByID(ctx context.Context, id string) (*model.ProfileDocument, error) {
	raw, err := s.cache.Get(ctx, cacheKey(id))
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "cache get failed", "id", id, "err", err)
		}
	} else if raw != nil {
		var doc model.ProfileDocument
		if unmarshalErr := json.Unmarshal(raw, &doc); unmarshalErr == nil {
			return &doc, nil
		}
		// Corrupt entry; drop it and fall through to the repository.
		s.invalidate(ctx, id)
	}

	doc, err := s.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, doc)
	return doc, nil
}

// Update applies the mutation through the inner repository and refreshes the
// cached entry with the committed document.
func (s *CachedStore) Update(
	ctx context.Context,
	id string,
	mutate func(doc *model.ProfileDocument) error,
) (*model.ProfileDocument, error) {
	doc, err := s.inner.Update(ctx, id, mutate)
	if err != nil {
		// The write may or may not have landed; drop the entry to be safe.
		s.invalidate(ctx, id)
		return nil, err
	}
	s.fill(ctx, doc)
	return doc, nil
}

// Delete removes the document and its cached entry.
func (s *CachedStore) Delete(ctx context.Context, id string) error {
	s.invalidate(ctx, id)
	return s.inner.Delete(ctx, id)
}

// List always goes to the inner repository.
func (s *CachedStore) List(ctx context.Context, limit, offset int) ([]*model.ProfileDocument, error) {
	return s.inner.List(ctx, limit, offset)
}

func (s *CachedStore) fill(ctx context.Context, doc *model.ProfileDocument) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(doc.ID), raw, s.ttl); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "cache set failed", "id", doc.ID, "err", err)
	}
}

func (s *CachedStore) invalidate(ctx context.Context, id string) {
	if _, err := s.cache.Delete(ctx, cacheKey(id)); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "cache delete failed", "id", id, "err", err)
	}
}
