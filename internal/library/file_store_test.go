package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestUpsertAndGet(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, "user-1", Entry{
		MangaID:  "manga-1",
		Title:    "Solo Leveling",
		CoverURL: "https://covers/1.jpg",
		Status:   StatusReading,
	})
	require.NoError(t, err)

	entry, err := store.Get(ctx, "user-1", "manga-1")
	require.NoError(t, err)
	assert.Equal(t, "Solo Leveling", entry.Title)
	assert.Equal(t, StatusReading, entry.Status)
	assert.False(t, entry.UpdatedAt.IsZero())
}

func TestUpsertMergesNonZeroFields(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "user-1", Entry{
		MangaID:              "manga-1",
		Title:                "Solo Leveling",
		CoverURL:             "https://covers/1.jpg",
		Status:               StatusReading,
		CurrentChapterID:     "chap-1",
		CurrentChapterNumber: "1",
		CurrentPage:          7,
	}))

	// Status-only update; everything else must survive.
	require.NoError(t, store.Upsert(ctx, "user-1", Entry{
		MangaID: "manga-1",
		Status:  StatusCompleted,
	}))

	entry, err := store.Get(ctx, "user-1", "manga-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, entry.Status)
	assert.Equal(t, "Solo Leveling", entry.Title)
	assert.Equal(t, "https://covers/1.jpg", entry.CoverURL)
	assert.Equal(t, "chap-1", entry.CurrentChapterID)
	assert.Equal(t, 7, entry.CurrentPage)
}

func TestUpsertUpdatedAtStrictlyIncreasing(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	// Freeze the clock so successive writes would collide without the bump.
	frozen := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return frozen }

	require.NoError(t, store.Upsert(ctx, "user-1", Entry{MangaID: "manga-1", Title: "A", Status: StatusReading}))
	first, err := store.Get(ctx, "user-1", "manga-1")
	require.NoError(t, err)

	require.NoError(t, store.Upsert(ctx, "user-1", Entry{MangaID: "manga-1", Status: StatusCompleted}))
	second, err := store.Get(ctx, "user-1", "manga-1")
	require.NoError(t, err)

	assert.True(t, second.UpdatedAt.After(first.UpdatedAt),
		"UpdatedAt must advance: %v then %v", first.UpdatedAt, second.UpdatedAt)
}

func TestUpsertRequiresMangaID(t *testing.T) {
	store := newTestFileStore(t)
	assert.Error(t, store.Upsert(context.Background(), "user-1", Entry{Title: "No ID"}))
}

func TestUpdateProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("existing entry keeps metadata", func(t *testing.T) {
		store := newTestFileStore(t)
		require.NoError(t, store.Upsert(ctx, "user-1", Entry{
			MangaID: "manga-1",
			Title:   "Solo Leveling",
			Status:  StatusOnHold,
		}))

		require.NoError(t, store.UpdateProgress(ctx, "user-1", "manga-1", "chap-2", "2", 13))

		entry, err := store.Get(ctx, "user-1", "manga-1")
		require.NoError(t, err)
		assert.Equal(t, "Solo Leveling", entry.Title)
		assert.Equal(t, StatusOnHold, entry.Status)
		assert.Equal(t, "chap-2", entry.CurrentChapterID)
		assert.Equal(t, "2", entry.CurrentChapterNumber)
		assert.Equal(t, 13, entry.CurrentPage)
	})

	t.Run("untracked manga gets a placeholder", func(t *testing.T) {
		store := newTestFileStore(t)
		require.NoError(t, store.UpdateProgress(ctx, "user-1", "manga-9", "chap-1", "1", 3))

		entry, err := store.Get(ctx, "user-1", "manga-9")
		require.NoError(t, err)
		assert.Equal(t, "Unknown (Sync)", entry.Title)
		assert.Equal(t, StatusReading, entry.Status)
		assert.Equal(t, 3, entry.CurrentPage)
	})

	t.Run("page zero is a real position", func(t *testing.T) {
		store := newTestFileStore(t)
		require.NoError(t, store.UpdateProgress(ctx, "user-1", "manga-1", "chap-1", "1", 12))
		require.NoError(t, store.UpdateProgress(ctx, "user-1", "manga-1", "chap-2", "2", 0))

		entry, err := store.Get(ctx, "user-1", "manga-1")
		require.NoError(t, err)
		assert.Equal(t, "chap-2", entry.CurrentChapterID)
		assert.Equal(t, 0, entry.CurrentPage)
	})
}

func TestGetMiss(t *testing.T) {
	store := newTestFileStore(t)
	_, err := store.Get(context.Background(), "user-1", "never-added")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSortedByRecency(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	clock := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Upsert(ctx, "user-1", Entry{MangaID: id, Title: id, Status: StatusReading}))
	}
	// Touch "a" so it becomes the most recent.
	require.NoError(t, store.Upsert(ctx, "user-1", Entry{MangaID: "a", Status: StatusCompleted}))

	entries, err := store.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].MangaID)
	assert.Equal(t, "c", entries[1].MangaID)
	assert.Equal(t, "b", entries[2].MangaID)
}

func TestRemove(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "user-1", Entry{MangaID: "manga-1", Title: "T", Status: StatusReading}))
	require.NoError(t, store.Remove(ctx, "user-1", "manga-1"))

	_, err := store.Get(ctx, "user-1", "manga-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Removing an absent entry is a no-op.
	assert.NoError(t, store.Remove(ctx, "user-1", "manga-1"))
}

func TestUsersIsolated(t *testing.T) {
	store := newTestFileStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "user-1", Entry{MangaID: "manga-1", Title: "Mine", Status: StatusReading}))

	_, err := store.Get(ctx, "user-2", "manga-1")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := store.List(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCorruptDocumentDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "library_user-1.json"), []byte("{not json"), 0o644))

	entries, err := store.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Writes recover the document.
	require.NoError(t, store.Upsert(context.Background(), "user-1", Entry{MangaID: "manga-1", Status: StatusReading}))
	entry, err := store.Get(context.Background(), "user-1", "manga-1")
	require.NoError(t, err)
	assert.Equal(t, "manga-1", entry.MangaID)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, "user-1", Entry{MangaID: "manga-1", Title: "Kept", Status: StatusReading}))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	entry, err := reopened.Get(ctx, "user-1", "manga-1")
	require.NoError(t, err)
	assert.Equal(t, "Kept", entry.Title)
}
