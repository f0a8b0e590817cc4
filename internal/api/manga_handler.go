package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"animanga/internal/catalog"
	"animanga/internal/catalog/mangadex"
	"animanga/internal/discovery"
)

// MangaHandler serves the discovery and reader endpoints.
type MangaHandler struct {
	svc discovery.Service
}

func NewMangaHandler(svc discovery.Service) *MangaHandler {
	return &MangaHandler{svc: svc}
}

// respondUpstreamError maps the catalog error taxonomy onto HTTP statuses.
// Unavailability is retryable from the client's point of view; rejections
// are not.
func respondUpstreamError(c *gin.Context, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	}
	if errors.Is(err, catalog.ErrUnavailable) {
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "upstream unavailable", Retryable: true})
		return
	}
	var rejected *catalog.RejectedError
	if errors.As(err, &rejected) {
		log.Printf("[API] upstream rejection: %v", rejected)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "upstream rejected request"})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

// List handles GET /api/manga
func (h *MangaHandler) List(c *gin.Context) {
	opts := discovery.SearchOptions{
		Title:        c.Query("title"),
		IncludedTags: c.QueryArray("includedTags[]"),
		Limit:        intQuery(c, "limit", 12),
		Offset:       intQuery(c, "offset", 0),
	}
	results, err := h.svc.Search(c.Request.Context(), opts)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

// Browse handles GET /api/browse
func (h *MangaHandler) Browse(c *gin.Context) {
	opts := discovery.BrowseOptions{
		Search:  c.Query("search"),
		Genres:  c.QueryArray("genres[]"),
		Sort:    c.Query("sort"),
		Page:    intQuery(c, "page", 1),
		PerPage: intQuery(c, "perPage", 20),
	}
	results, err := h.svc.Browse(c.Request.Context(), opts)
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

// Trending handles GET /api/manga/trending
func (h *MangaHandler) Trending(c *gin.Context) {
	results, err := h.svc.Trending(c.Request.Context(), intQuery(c, "limit", 10))
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results})
}

// Get handles GET /api/manga/:id
func (h *MangaHandler) Get(c *gin.Context) {
	record, err := h.svc.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Feed handles GET /api/manga/:id/feed
func (h *MangaHandler) Feed(c *gin.Context) {
	chapters, err := h.svc.Feed(c.Request.Context(), c.Param("id"),
		intQuery(c, "limit", 100), intQuery(c, "offset", 0))
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": chapters})
}

// Recent handles GET /api/chapters/recent
func (h *MangaHandler) Recent(c *gin.Context) {
	chapters, err := h.svc.RecentChapters(c.Request.Context(),
		intQuery(c, "limit", 20), intQuery(c, "offset", 0))
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": chapters})
}

// Tags handles GET /api/tags
func (h *MangaHandler) Tags(c *gin.Context) {
	tags, err := h.svc.Tags(c.Request.Context())
	if err != nil {
		respondUpstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tags})
}

// ChapterPages handles GET /api/chapter/:id/pages. The manifest is resolved
// into full page URLs for both quality tiers so the reader never assembles
// URLs itself.
func (h *MangaHandler) ChapterPages(c *gin.Context) {
	manifest, err := h.svc.PageManifest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondUpstreamError(c, err)
		return
	}

	resolve := func(q mangadex.Quality) []string {
		names := manifest.Pages(q)
		urls := make([]string, 0, len(names))
		for _, name := range names {
			urls = append(urls, manifest.PageURL(q, name))
		}
		return urls
	}

	c.JSON(http.StatusOK, gin.H{
		"hash":      manifest.Chapter.Hash,
		"data":      resolve(mangadex.QualityData),
		"dataSaver": resolve(mangadex.QualityDataSaver),
	})
}
