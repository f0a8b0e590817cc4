package mangadex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"animanga/internal/catalog"
)

const (
	defaultBaseURL    = "https://api.mangadex.org"
	defaultUploadsURL = "https://uploads.mangadex.org"

	// MangaDex allows 5 requests per second
	rateLimit = 5
	rateBurst = 10
)

// Client talks to the MangaDex REST API. Instances are constructed and
// injected, never global, and safe for concurrent use.
type Client struct {
	baseURL     string
	uploadsURL  string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// Options configures a Client. Zero values fall back to production defaults.
type Options struct {
	BaseURL    string
	UploadsURL string
	Timeout    time.Duration
}

// NewClient creates a MangaDex API client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.UploadsURL == "" {
		opts.UploadsURL = defaultUploadsURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL:     opts.BaseURL,
		uploadsURL:  opts.UploadsURL,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Search fetches a page of manga matching the given filters.
func (c *Client) Search(ctx context.Context, params SearchParams) (*MangaList, error) {
	var response MangaList
	if err := c.doRequest(ctx, "/manga", params.Values(), &response); err != nil {
		return nil, fmt.Errorf("search manga: %w", err)
	}
	return &response, nil
}

// GetByID fetches a single manga with cover, author and artist relationships.
func (c *Client) GetByID(ctx context.Context, id string) (*Manga, error) {
	params := url.Values{}
	params.Add("includes[]", "cover_art")
	params.Add("includes[]", "author")
	params.Add("includes[]", "artist")

	var response mangaResponse
	if err := c.doRequest(ctx, "/manga/"+id, params, &response); err != nil {
		return nil, fmt.Errorf("get manga %s: %w", id, err)
	}
	return &response.Data, nil
}

// GetFeed fetches the chapter feed for a manga.
func (c *Client) GetFeed(ctx context.Context, mangaID string, params FeedParams) ([]Chapter, error) {
	var response ChapterList
	endpoint := fmt.Sprintf("/manga/%s/feed", mangaID)
	if err := c.doRequest(ctx, endpoint, params.Values(), &response); err != nil {
		return nil, fmt.Errorf("fetch feed for %s: %w", mangaID, err)
	}
	return response.Data, nil
}

// GetRecentChapters fetches globally recent chapters ordered by readableAt,
// with the parent manga embedded as a relationship.
func (c *Client) GetRecentChapters(ctx context.Context, limit, offset int) ([]Chapter, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("offset", fmt.Sprintf("%d", offset))
	params.Add("translatedLanguage[]", "en")
	params.Set("order[readableAt]", "desc")
	params.Add("includes[]", "manga")
	params.Add("includes[]", "scanlation_group")
	params.Add("contentRating[]", "safe")
	params.Add("contentRating[]", "suggestive")

	var response ChapterList
	if err := c.doRequest(ctx, "/chapter", params, &response); err != nil {
		return nil, fmt.Errorf("fetch recent chapters: %w", err)
	}
	return response.Data, nil
}

// GetTags fetches the tag vocabulary. Near-static reference data; callers
// cache it with a long freshness window.
func (c *Client) GetTags(ctx context.Context) ([]Tag, error) {
	var response tagListResponse
	if err := c.doRequest(ctx, "/manga/tag", nil, &response); err != nil {
		return nil, fmt.Errorf("fetch tags: %w", err)
	}
	return response.Data, nil
}

// GetPageManifest resolves the page-server manifest for a chapter.
func (c *Client) GetPageManifest(ctx context.Context, chapterID string) (*PageManifest, error) {
	var response PageManifest
	if err := c.doRequest(ctx, "/at-home/server/"+chapterID, nil, &response); err != nil {
		return nil, fmt.Errorf("fetch page manifest for %s: %w", chapterID, err)
	}
	return &response, nil
}

// CoverURL returns the 256px thumbnail URL for a cover file.
func (c *Client) CoverURL(mangaID, fileName string) string {
	return fmt.Sprintf("%s/covers/%s/%s.256.jpg", c.uploadsURL, mangaID, fileName)
}

// OriginalCoverURL returns the full-resolution cover URL.
func (c *Client) OriginalCoverURL(mangaID, fileName string) string {
	return fmt.Sprintf("%s/covers/%s/%s", c.uploadsURL, mangaID, fileName)
}

// doRequest performs a rate-limited GET and decodes the JSON envelope.
// Transport failures map to catalog.ErrUnavailable, 404 to catalog.ErrNotFound
// and other non-2xx responses to catalog.RejectedError. Retrying is the
// caller's concern.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "AniManga/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return catalog.Unavailablef("mangadex", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return catalog.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &catalog.RejectedError{Source: "mangadex", Status: resp.StatusCode, Reason: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &catalog.RejectedError{Source: "mangadex", Status: resp.StatusCode, Reason: fmt.Sprintf("malformed payload: %v", err)}
	}
	return nil
}
