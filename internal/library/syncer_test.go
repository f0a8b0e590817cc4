package library

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore captures UpdateProgress calls for debounce assertions.
type recordingStore struct {
	mu    sync.Mutex
	calls []progressCall
}

type progressCall struct {
	UserID    string
	MangaID   string
	ChapterID string
	Page      int
}

func (s *recordingStore) UpdateProgress(ctx context.Context, userID, mangaID, chapterID, chapterNumber string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, progressCall{UserID: userID, MangaID: mangaID, ChapterID: chapterID, Page: page})
	return nil
}

func (s *recordingStore) Upsert(ctx context.Context, userID string, entry Entry) error { return nil }
func (s *recordingStore) Get(ctx context.Context, userID, mangaID string) (*Entry, error) {
	return nil, ErrNotFound
}
func (s *recordingStore) List(ctx context.Context, userID string) ([]Entry, error) { return nil, nil }
func (s *recordingStore) Remove(ctx context.Context, userID, mangaID string) error { return nil }

func (s *recordingStore) snapshot() []progressCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]progressCall(nil), s.calls...)
}

func TestSyncerCoalescesBurst(t *testing.T) {
	store := &recordingStore{}
	syncer := NewSyncer(store, 50*time.Millisecond)
	defer syncer.Close()

	// A reader flipping pages fires a burst of updates.
	for page := 1; page <= 10; page++ {
		syncer.UpdateProgress("user-1", "manga-1", "chap-1", "1", page)
	}

	require.Eventually(t, func() bool {
		return len(store.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	calls := store.snapshot()
	assert.Equal(t, 10, calls[0].Page, "only the final position lands")
}

func TestSyncerIndependentKeys(t *testing.T) {
	store := &recordingStore{}
	syncer := NewSyncer(store, 50*time.Millisecond)
	defer syncer.Close()

	syncer.UpdateProgress("user-1", "manga-1", "chap-1", "1", 4)
	syncer.UpdateProgress("user-1", "manga-2", "chap-7", "7", 9)
	syncer.UpdateProgress("user-2", "manga-1", "chap-1", "1", 2)

	require.Eventually(t, func() bool {
		return len(store.snapshot()) == 3
	}, time.Second, 10*time.Millisecond)

	seen := map[string]int{}
	for _, c := range store.snapshot() {
		seen[c.UserID+"|"+c.MangaID] = c.Page
	}
	assert.Equal(t, map[string]int{
		"user-1|manga-1": 4,
		"user-1|manga-2": 9,
		"user-2|manga-1": 2,
	}, seen)
}

func TestSyncerRescheduleExtendsWindow(t *testing.T) {
	store := &recordingStore{}
	syncer := NewSyncer(store, 80*time.Millisecond)
	defer syncer.Close()

	syncer.UpdateProgress("user-1", "manga-1", "chap-1", "1", 1)
	time.Sleep(40 * time.Millisecond)
	syncer.UpdateProgress("user-1", "manga-1", "chap-1", "1", 2)

	// The first timer would have fired by now; the reschedule replaced it.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, store.snapshot())

	require.Eventually(t, func() bool {
		return len(store.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, store.snapshot()[0].Page)
}

func TestSyncerLateFireKeepsReplacement(t *testing.T) {
	store := &recordingStore{}
	syncer := NewSyncer(store, 10*time.Millisecond)
	defer syncer.Close()

	syncer.UpdateProgress("user-1", "manga-1", "chap-1", "1", 1)

	// Hold the lock across the firing so the callback observes a state where
	// another update already replaced its map entry.
	syncer.mu.Lock()
	time.Sleep(30 * time.Millisecond)
	replacement := time.AfterFunc(time.Hour, func() {})
	syncer.wg.Add(1)
	syncer.pending["user-1|manga-1"] = replacement
	syncer.mu.Unlock()

	// The superseded timer must neither write nor drop the replacement.
	time.Sleep(30 * time.Millisecond)
	syncer.mu.Lock()
	got := syncer.pending["user-1|manga-1"]
	syncer.mu.Unlock()
	assert.Equal(t, replacement, got)
	assert.Empty(t, store.snapshot())
}

func TestSyncerFlush(t *testing.T) {
	store := &recordingStore{}
	syncer := NewSyncer(store, time.Hour) // would never fire on its own
	defer syncer.Close()

	syncer.UpdateProgress("user-1", "manga-1", "chap-1", "1", 3)
	require.NoError(t, syncer.Flush(context.Background(), "user-1", "manga-1", "chap-1", "1", 5))

	calls := store.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, 5, calls[0].Page)

	// The cancelled timer never fires a second write.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, store.snapshot(), 1)
}

func TestSyncerCloseCancelsPending(t *testing.T) {
	store := &recordingStore{}
	syncer := NewSyncer(store, time.Hour)

	syncer.UpdateProgress("user-1", "manga-1", "chap-1", "1", 3)
	syncer.Close()

	assert.Empty(t, store.snapshot())

	// Updates after Close are dropped.
	syncer.UpdateProgress("user-1", "manga-1", "chap-1", "1", 4)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, store.snapshot())
}

func TestSyncerDefaultWindow(t *testing.T) {
	syncer := NewSyncer(&recordingStore{}, 0)
	defer syncer.Close()
	assert.Equal(t, 2*time.Second, syncer.window)
}
