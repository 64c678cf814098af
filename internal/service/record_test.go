package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ruthikN/foodie-die/internal/models"
	"github.com/ruthikN/foodie-die/internal/testhelpers"
)

func newStoredAnalysis(hash string) *models.MealAnalysis {
	return &models.MealAnalysis{
		ImageHash:           hash,
		ImageContentType:    "jpeg",
		MealDescription:     `{"items":[],"health_rating":3,"alternative_suggestions":[]}`,
		AggregatedNutrition: `{"calories":0}`,
	}
}

func TestRecordStore_PersistAndGet(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	store := NewRecordStore(db)
	ctx := context.Background()

	analysis := newStoredAnalysis("abc123")
	id, err := store.Persist(ctx, analysis)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	loaded, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "abc123", loaded.ImageHash)
	assert.Equal(t, analysis.MealDescription, loaded.MealDescription)
	assert.False(t, loaded.CreatedAt.IsZero())
}

func TestRecordStore_GetUnknownID(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	store := NewRecordStore(db)

	_, err := store.Get(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestRecordStore_DuplicateImageHashAllowed(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	store := NewRecordStore(db)
	ctx := context.Background()

	// The image hash identifies content, it is not a uniqueness key:
	// re-analyzing the same photo appends a new history entry.
	first, err := store.Persist(ctx, newStoredAnalysis("samehash"))
	require.NoError(t, err)
	second, err := store.Persist(ctx, newStoredAnalysis("samehash"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	entries, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecordStore_ListNewestFirst(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	store := NewRecordStore(db)
	ctx := context.Background()

	for _, hash := range []string{"first", "second", "third"} {
		_, err := store.Persist(ctx, newStoredAnalysis(hash))
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	entries, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].ImageHash)
	assert.Equal(t, "second", entries[1].ImageHash)

	rest, err := store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "first", rest[0].ImageHash)
}

func TestRecordStore_ConcurrentPersists(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)
	store := NewRecordStore(db)
	ctx := context.Background()

	const n = 20
	ids := make(chan uuid.UUID, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			id, err := store.Persist(ctx, newStoredAnalysis("concurrent"))
			ids <- id
			errs <- err
		}()
	}

	seen := make(map[uuid.UUID]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
		id := <-ids
		assert.False(t, seen[id], "record ids must never collide")
		seen[id] = true
	}
}

func TestRecordStore_Postgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-based test in short mode")
	}
	db := testhelpers.SetupPostgresContainer(t)
	store := NewRecordStore(db)
	ctx := context.Background()

	id, err := store.Persist(ctx, newStoredAnalysis("pghash"))
	require.NoError(t, err)

	loaded, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "pghash", loaded.ImageHash)
}
