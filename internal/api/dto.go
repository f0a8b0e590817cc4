package api

import "animanga/internal/library"

// UpsertEntryRequest is the POST /api/library body.
type UpsertEntryRequest struct {
	MangaID  string `json:"mangaId" binding:"required"`
	Title    string `json:"title"`
	CoverURL string `json:"coverUrl"`
	Status   string `json:"status" binding:"required"`
	Score    int    `json:"score"`
}

func (r UpsertEntryRequest) entry() library.Entry {
	return library.Entry{
		MangaID:  r.MangaID,
		Title:    r.Title,
		CoverURL: r.CoverURL,
		Status:   library.Status(r.Status),
		Score:    r.Score,
	}
}

// ProgressRequest is the PUT /api/library/:id/progress body.
type ProgressRequest struct {
	ChapterID     string `json:"chapterId" binding:"required"`
	ChapterNumber string `json:"chapterNumber"`
	Page          int    `json:"page"`
}

// TokenRequest is the POST /api/auth/token body. DeviceID is optional; a
// fresh identity is minted when absent.
type TokenRequest struct {
	DeviceID string `json:"deviceId"`
}

// ErrorResponse is the uniform error body. Retryable marks failures that the
// client may retry (upstream unavailability), as opposed to rejections.
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}
