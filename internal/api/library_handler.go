package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"animanga/internal/library"
)

// LibraryHandler serves the personal library endpoints. Reads degrade to
// empty results when the store is unreachable; explicit writes surface the
// failure.
type LibraryHandler struct {
	store  library.Store
	syncer *library.Syncer
}

func NewLibraryHandler(store library.Store, syncer *library.Syncer) *LibraryHandler {
	return &LibraryHandler{store: store, syncer: syncer}
}

// List handles GET /api/library
func (h *LibraryHandler) List(c *gin.Context) {
	entries, err := h.store.List(c.Request.Context(), userID(c))
	if err != nil {
		log.Printf("[API] library list failed: %v", err)
		entries = []library.Entry{}
	}
	if entries == nil {
		entries = []library.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// Get handles GET /api/library/:id
func (h *LibraryHandler) Get(c *gin.Context) {
	entry, err := h.store.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not in library"})
			return
		}
		log.Printf("[API] library get failed: %v", err)
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not in library"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// Upsert handles POST /api/library
func (h *LibraryHandler) Upsert(c *gin.Context) {
	var req UpsertEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if !library.ValidStatus(library.Status(req.Status)) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid reading status"})
		return
	}
	if err := h.store.Upsert(c.Request.Context(), userID(c), req.entry()); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to save library entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"saved": true})
}

// Remove handles DELETE /api/library/:id
func (h *LibraryHandler) Remove(c *gin.Context) {
	if err := h.store.Remove(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to remove library entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

// Progress handles PUT /api/library/:id/progress. Writes are debounced per
// manga; the response acknowledges scheduling, not persistence.
func (h *LibraryHandler) Progress(c *gin.Context) {
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	h.syncer.UpdateProgress(userID(c), c.Param("id"), req.ChapterID, req.ChapterNumber, req.Page)
	c.JSON(http.StatusAccepted, gin.H{"scheduled": true})
}
