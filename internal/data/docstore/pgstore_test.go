package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentforge/insights/internal/data"
	"github.com/talentforge/insights/internal/domain/model"
	apperrors "github.com/talentforge/insights/internal/errors"
	"github.com/talentforge/insights/internal/testutil"
)

func newTestPGStore(t *testing.T, db *sql.DB) *PGStore {
	t.Helper()
	store, err := NewPGStore(PGStoreOptions{DB: db})
	require.NoError(t, err)
	return store
}

func TestPGStore_CreateAndGet(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		store := newTestPGStore(t, db)
		ctx := context.Background()

		doc := &model.ProfileDocument{
			ID:     uuid.NewString(),
			Resume: model.Resume{FullName: "Dana Feld", Skills: []string{"go", "sql"}},
		}
		require.NoError(t, store.Create(ctx, doc))
		assert.Equal(t, int64(1), doc.Version)

		got, err := store.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.ID, got.ID)
		assert.Equal(t, int64(1), got.Version)
		assert.Equal(t, "Dana Feld", got.Resume.FullName)
	})
}

func TestPGStore_CreateDuplicate(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		store := newTestPGStore(t, db)
		ctx := context.Background()

		doc := &model.ProfileDocument{ID: uuid.NewString()}
		require.NoError(t, store.Create(ctx, doc))

		err := store.Create(ctx, &model.ProfileDocument{ID: doc.ID})
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestPGStore_GetMissing(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		store := newTestPGStore(t, db)

		_, err := store.GetByID(context.Background(), uuid.NewString())
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestPGStore_UpdateBumpsVersion(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		store := newTestPGStore(t, db)
		ctx := context.Background()

		doc := &model.ProfileDocument{ID: uuid.NewString()}
		require.NoError(t, store.Create(ctx, doc))

		updated, err := store.Update(ctx, doc.ID, func(d *model.ProfileDocument) error {
			d.PutCachedScore("abc123", model.CachedScore{
				Score:      model.ATSScore{OverallScore: 82},
				ComputedAt: time.Now().UTC(),
			})
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version)

		got, err := store.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		cached, ok := got.CachedScoreAt("abc123")
		require.True(t, ok)
		assert.Equal(t, 82, cached.Score.OverallScore)
	})
}

func TestPGStore_UpdateMutateErrorLeavesRowUntouched(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		store := newTestPGStore(t, db)
		ctx := context.Background()

		doc := &model.ProfileDocument{ID: uuid.NewString()}
		require.NoError(t, store.Create(ctx, doc))

		_, err := store.Update(ctx, doc.ID, func(d *model.ProfileDocument) error {
			return fmt.Errorf("boom")
		})
		require.Error(t, err)

		got, err := store.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)
	})
}

func TestPGStore_ConcurrentUpdatesNoLostWrites(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		store, err := NewPGStore(PGStoreOptions{DB: db, UpdateRetries: 50})
		require.NoError(t, err)
		ctx := context.Background()

		doc := &model.ProfileDocument{ID: uuid.NewString()}
		require.NoError(t, store.Create(ctx, doc))

		const writers = 10
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := range writers {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				key := fmt.Sprintf("key-%02d", n)
				_, updateErr := store.Update(ctx, doc.ID, func(d *model.ProfileDocument) error {
					d.PutCachedScore(key, model.CachedScore{
						Score:      model.ATSScore{OverallScore: n},
						ComputedAt: time.Now().UTC(),
					})
					return nil
				})
				errs <- updateErr
			}(i)
		}
		wg.Wait()
		close(errs)
		for updateErr := range errs {
			require.NoError(t, updateErr)
		}

		got, err := store.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1+writers), got.Version)
		assert.Len(t, got.ScoreCache, writers)
	})
}

func TestPGStore_Delete(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		store := newTestPGStore(t, db)
		ctx := context.Background()

		doc := &model.ProfileDocument{ID: uuid.NewString()}
		require.NoError(t, store.Create(ctx, doc))
		require.NoError(t, store.Delete(ctx, doc.ID))

		_, err := store.GetByID(ctx, doc.ID)
		assert.True(t, apperrors.IsNotFound(err))

		err = store.Delete(ctx, doc.ID)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestPGStore_ListOrderAndPagination(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		tp := data.NewFixedTimeProvider(testutil.TestTime())
		store, err := NewPGStore(PGStoreOptions{DB: db, Time: tp})
		require.NoError(t, err)
		ctx := context.Background()

		var ids []string
		for range 3 {
			doc := &model.ProfileDocument{ID: uuid.NewString()}
			require.NoError(t, store.Create(ctx, doc))
			ids = append(ids, doc.ID)
			tp.AddTime(time.Minute)
		}

		docs, err := store.List(ctx, 10, 0)
		require.NoError(t, err)
		require.Len(t, docs, 3)
		// Newest first.
		assert.Equal(t, ids[2], docs[0].ID)
		assert.Equal(t, ids[0], docs[2].ID)

		page, err := store.List(ctx, 1, 1)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, ids[1], page[0].ID)
	})
}
