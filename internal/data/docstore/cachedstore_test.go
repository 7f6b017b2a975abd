package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentforge/insights/internal/data"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
)

func newTestCachedStore(t *testing.T) (*CachedStore, *FileStore, *miniredis.Miniredis) {
	t.Helper()

	inner, err := NewFileStore(FileStoreOptions{Dir: t.TempDir()})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewCachedStore(CachedStoreOptions{
		Inner: inner,
		Cache: data.NewRedisCacheRepo(client),
		TTL:   time.Minute,
	})
	require.NoError(t, err)
	return store, inner, mr
}

func TestCachedStore_ReadThrough(t *testing.T) {
	store, inner, mr := newTestCachedStore(t)
	ctx := context.Background()

	doc := &model.ProfileDocument{ID: uuid.NewString(), Resume: model.Resume{FullName: "Ada"}}
	require.NoError(t, inner.Create(ctx, doc))

	// First read misses the cache and fills it.
	assert.False(t, mr.Exists("profile:"+doc.ID))
	got, err := store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Resume.FullName)
	assert.True(t, mr.Exists("profile:"+doc.ID))

	// Second read is served from the cache.
	got, err = store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
}

func TestCachedStore_UpdateRefreshesCache(t *testing.T) {
	store, _, _ := newTestCachedStore(t)
	ctx := context.Background()

	doc := &model.ProfileDocument{ID: uuid.NewString()}
	require.NoError(t, store.Create(ctx, doc))

	_, err := store.Update(ctx, doc.ID, func(d *model.ProfileDocument) error {
		d.Resume.FullName = "Updated"
		return nil
	})
	require.NoError(t, err)

	// The cached entry must reflect the committed write.
	got, err := store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated", got.Resume.FullName)
	assert.Equal(t, int64(2), got.Version)
}

func TestCachedStore_DeleteInvalidates(t *testing.T) {
	store, _, mr := newTestCachedStore(t)
	ctx := context.Background()

	doc := &model.ProfileDocument{ID: uuid.NewString()}
	require.NoError(t, store.Create(ctx, doc))
	require.True(t, mr.Exists("profile:"+doc.ID))

	require.NoError(t, store.Delete(ctx, doc.ID))
	assert.False(t, mr.Exists("profile:"+doc.ID))

	_, err := store.GetByID(ctx, doc.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCachedStore_CorruptEntryFallsBack(t *testing.T) {
	store, inner, mr := newTestCachedStore(t)
	ctx := context.Background()

	doc := &model.ProfileDocument{ID: uuid.NewString(), Resume: model.Resume{FullName: "Real"}}
	require.NoError(t, inner.Create(ctx, doc))
	require.NoError(t, mr.Set("profile:"+doc.ID, "{not json"))

	got, err := store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Real", got.Resume.FullName)
}

func TestCachedStore_CacheDownStillServes(t *testing.T) {
	store, inner, mr := newTestCachedStore(t)
	ctx := context.Background()

	doc := &model.ProfileDocument{ID: uuid.NewString(), Resume: model.Resume{FullName: "Resilient"}}
	require.NoError(t, inner.Create(ctx, doc))

	mr.Close()

	got, err := store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Resilient", got.Resume.FullName)
}
