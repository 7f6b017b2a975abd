package data

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCacheRepo(t *testing.T) (*RedisCacheRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheRepo(client), mr
}

func TestRedisCacheRepo_SetGet(t *testing.T) {
	repo, _ := newTestCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "profile:abc", []byte(`{"id":"abc"}`), 0))

	got, err := repo.Get(ctx, "profile:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"abc"}`), got)
}

func TestRedisCacheRepo_GetMissingReturnsNil(t *testing.T) {
	repo, _ := newTestCacheRepo(t)

	got, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCacheRepo_TTLExpiry(t *testing.T) {
	repo, mr := newTestCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "ephemeral", []byte("x"), time.Minute))

	mr.FastForward(2 * time.Minute)

	got, err := repo.Get(ctx, "ephemeral")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCacheRepo_Delete(t *testing.T) {
	repo, _ := newTestCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), 0))

	existed, err := repo.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = repo.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestRedisCacheRepo_EmptyKeyRejected(t *testing.T) {
	repo, _ := newTestCacheRepo(t)
	ctx := context.Background()

	assert.Error(t, repo.Set(ctx, "", []byte("v"), 0))

	_, err := repo.Get(ctx, "")
	assert.Error(t, err)

	_, err = repo.Delete(ctx, "")
	assert.Error(t, err)
}

func TestRedisCacheRepo_Health(t *testing.T) {
	repo, mr := newTestCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Health(ctx))

	mr.Close()
	assert.Error(t, repo.Health(ctx))
}
