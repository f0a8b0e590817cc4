package library

import (
	"context"
	"log"
	"sync"
	"time"
)

// Syncer coalesces rapid progress updates into one persisted write per quiet
// window. Each new update for the same (user, manga) cancels and reschedules
// the pending write, so only the final reading position lands in the store.
// Losing the intermediate positions is acceptable; this exists to bound write
// amplification while a reader flips pages.
type Syncer struct {
	store  Store
	window time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	wg      sync.WaitGroup
}

func NewSyncer(store Store, window time.Duration) *Syncer {
	if window <= 0 {
		window = 2 * time.Second
	}
	return &Syncer{
		store:   store,
		window:  window,
		pending: make(map[string]*time.Timer),
	}
}

// UpdateProgress schedules a debounced progress write. Write failures are
// logged, never surfaced; background sync must not interrupt reading.
func (s *Syncer) UpdateProgress(userID, mangaID, chapterID, chapterNumber string, page int) {
	key := userID + "|" + mangaID

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if timer, ok := s.pending[key]; ok {
		if timer.Stop() {
			s.wg.Done()
		}
	}
	s.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(s.window, func() {
		defer s.wg.Done()

		s.mu.Lock()
		// A reschedule or flush that raced with this firing owns the write;
		// touching the map here would drop the replacement's entry.
		if s.closed || s.pending[key] != timer {
			s.mu.Unlock()
			return
		}
		delete(s.pending, key)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.store.UpdateProgress(ctx, userID, mangaID, chapterID, chapterNumber, page); err != nil {
			log.Printf("[Library] progress sync failed for %s: %v", mangaID, err)
		}
	})
	s.pending[key] = timer
}

// Flush forces the pending write for one key immediately. Used when the
// reader navigates away and the final position should not wait out the
// window.
func (s *Syncer) Flush(ctx context.Context, userID, mangaID, chapterID, chapterNumber string, page int) error {
	key := userID + "|" + mangaID

	s.mu.Lock()
	if timer, ok := s.pending[key]; ok {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.pending, key)
	}
	s.mu.Unlock()

	return s.store.UpdateProgress(ctx, userID, mangaID, chapterID, chapterNumber, page)
}

// Close cancels all pending writes. Nothing is persisted after Close returns.
func (s *Syncer) Close() {
	s.mu.Lock()
	s.closed = true
	for key, timer := range s.pending {
		if timer.Stop() {
			s.wg.Done()
		}
		delete(s.pending, key)
	}
	s.mu.Unlock()

	// Timers that already fired finish or observe closed.
	s.wg.Wait()
}
