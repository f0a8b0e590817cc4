package library

import (
	"context"
	"errors"
	"time"
)

// Status is a reading status.
type Status string

const (
	StatusReading    Status = "reading"
	StatusCompleted  Status = "completed"
	StatusPlanToRead Status = "plan_to_read"
	StatusOnHold     Status = "on_hold"
	StatusDropped    Status = "dropped"
)

// ValidStatus reports whether s is one of the known reading statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusReading, StatusCompleted, StatusPlanToRead, StatusOnHold, StatusDropped:
		return true
	}
	return false
}

// Entry is one tracked title. MangaID is either an opaque MangaDex ID or a
// stringified AniList ID, whichever catalog the user added it from.
type Entry struct {
	MangaID              string    `json:"mangaId"`
	Title                string    `json:"title"`
	CoverURL             string    `json:"coverUrl,omitempty"`
	Status               Status    `json:"status"`
	CurrentChapterID     string    `json:"currentChapterId,omitempty"`
	CurrentChapterNumber string    `json:"currentChapterNumber,omitempty"`
	CurrentPage          int       `json:"currentPage,omitempty"`
	Score                int       `json:"score,omitempty"` // external score snapshot, 0-100
	UpdatedAt            time.Time `json:"updatedAt"`
}

// ErrNotFound is returned by Get for an untracked manga.
var ErrNotFound = errors.New("library entry not found")

// Store persists library entries for a user. Implementations are selected
// once at startup; callers never branch on the backing kind.
type Store interface {
	// Upsert merges the non-zero fields of entry into any existing entry for
	// entry.MangaID and refreshes UpdatedAt.
	Upsert(ctx context.Context, userID string, entry Entry) error
	// UpdateProgress records the reading position, creating a minimal
	// placeholder entry (status "reading") when the title was never
	// explicitly added.
	UpdateProgress(ctx context.Context, userID, mangaID, chapterID, chapterNumber string, page int) error
	Get(ctx context.Context, userID, mangaID string) (*Entry, error)
	List(ctx context.Context, userID string) ([]Entry, error)
	Remove(ctx context.Context, userID, mangaID string) error
}

// merge applies the non-zero fields of in over existing and stamps UpdatedAt.
// UpdatedAt is strictly increasing even under clock jitter.
func merge(existing Entry, in Entry, now time.Time) Entry {
	out := existing
	out.MangaID = in.MangaID
	if in.Title != "" {
		out.Title = in.Title
	}
	if in.CoverURL != "" {
		out.CoverURL = in.CoverURL
	}
	if in.Status != "" {
		out.Status = in.Status
	}
	if in.CurrentChapterID != "" {
		out.CurrentChapterID = in.CurrentChapterID
	}
	if in.CurrentChapterNumber != "" {
		out.CurrentChapterNumber = in.CurrentChapterNumber
	}
	if in.CurrentPage != 0 {
		out.CurrentPage = in.CurrentPage
	}
	if in.Score != 0 {
		out.Score = in.Score
	}
	if !now.After(existing.UpdatedAt) {
		now = existing.UpdatedAt.Add(time.Millisecond)
	}
	out.UpdatedAt = now
	return out
}

// applyProgress merges a reading position into an existing entry, or builds
// the minimal placeholder when the title was never added. Page is written
// unconditionally (page 0 is a real position).
func applyProgress(existing Entry, found bool, mangaID, chapterID, chapterNumber string, page int, now time.Time) Entry {
	if !found {
		existing = Entry{MangaID: mangaID, Title: "Unknown (Sync)", Status: StatusReading}
	}
	out := merge(existing, Entry{
		MangaID:              mangaID,
		CurrentChapterID:     chapterID,
		CurrentChapterNumber: chapterNumber,
	}, now)
	out.CurrentPage = page
	if out.Status == "" {
		out.Status = StatusReading
	}
	return out
}
