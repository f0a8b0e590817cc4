package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"animanga/internal/catalog"
)

const (
	defaultAPIURL = "https://graphql.anilist.co"

	// AniList allows ~90 requests per minute; stay well under it.
	rateLimit = 1
	rateBurst = 3
)

// mediaFields is the selection shared by detail and search queries.
const mediaFields = `
	id
	idMal
	title {
		romaji
		english
		native
	}
	description
	averageScore
	favourites
	status
	format
	genres
	coverImage {
		extraLarge
		large
		medium
	}
	bannerImage
	characters(sort: ROLE, perPage: 10) {
		edges {
			role
			node {
				name { full }
				image { medium }
			}
		}
	}`

// Client talks to the AniList GraphQL API.
type Client struct {
	apiURL      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// Options configures a Client. Zero values fall back to production defaults.
// MinDelay overrides the pacing between successive calls; the enrichment
// layer relies on it to stay under the undocumented rate ceiling.
type Options struct {
	APIURL   string
	Timeout  time.Duration
	MinDelay time.Duration
}

// NewClient creates an AniList API client.
func NewClient(opts Options) *Client {
	if opts.APIURL == "" {
		opts.APIURL = defaultAPIURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	limiter := rate.NewLimiter(rate.Limit(rateLimit), rateBurst)
	if opts.MinDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinDelay), 1)
	}
	return &Client{
		apiURL:      opts.APIURL,
		rateLimiter: limiter,
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

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// GetByID fetches a manga by its AniList ID.
func (c *Client) GetByID(ctx context.Context, id int) (*Media, error) {
	query := fmt.Sprintf(`query ($id: Int) { Media(id: $id, type: MANGA) {%s} }`, mediaFields)

	var result struct {
		Media *mediaPayload `json:"Media"`
	}
	err := c.doRequest(ctx, query, map[string]interface{}{"id": id}, &result)
	if err != nil {
		return nil, fmt.Errorf("fetch media %d: %w", id, err)
	}
	if result.Media == nil {
		return nil, catalog.ErrNotFound
	}
	return result.Media.flatten(), nil
}

// SearchOne runs a single-result title search and accepts the top hit as a
// probabilistic match. There is no confirmation step; callers must treat the
// result accordingly.
func (c *Client) SearchOne(ctx context.Context, title string) (*Media, error) {
	query := fmt.Sprintf(`query ($search: String) { Page(page: 1, perPage: 1) { media(search: $search, type: MANGA) {%s} } }`, mediaFields)

	var result struct {
		Page struct {
			Media []mediaPayload `json:"media"`
		} `json:"Page"`
	}
	err := c.doRequest(ctx, query, map[string]interface{}{"search": title}, &result)
	if err != nil {
		return nil, fmt.Errorf("search media %q: %w", title, err)
	}
	if len(result.Page.Media) == 0 {
		return nil, catalog.ErrNotFound
	}
	return result.Page.Media[0].flatten(), nil
}

// Search fetches a page of manga for the discovery views.
func (c *Client) Search(ctx context.Context, opts SearchOptions) ([]Media, error) {
	query := fmt.Sprintf(`query ($search: String, $genres: [String], $sort: [MediaSort], $page: Int, $perPage: Int) {
		Page(page: $page, perPage: $perPage) {
			media(search: $search, genre_in: $genres, sort: $sort, type: MANGA) {%s}
		}
	}`, mediaFields)

	variables := map[string]interface{}{
		"page":    opts.page(),
		"perPage": opts.perPage(),
		"sort":    []string{opts.sort()},
	}
	if s := strings.TrimSpace(opts.Search); s != "" {
		variables["search"] = s
	}
	if len(opts.Genres) > 0 {
		variables["genres"] = opts.Genres
	}

	var result struct {
		Page struct {
			Media []mediaPayload `json:"media"`
		} `json:"Page"`
	}
	if err := c.doRequest(ctx, query, variables, &result); err != nil {
		return nil, fmt.Errorf("search media: %w", err)
	}
	media := make([]Media, 0, len(result.Page.Media))
	for _, m := range result.Page.Media {
		media = append(media, *m.flatten())
	}
	return media, nil
}

// doRequest POSTs a GraphQL document and decodes the data envelope. Transport
// failures map to catalog.ErrUnavailable; HTTP 404 and GraphQL "Not Found"
// errors map to catalog.ErrNotFound so dead cross-references read as
// reconciliation misses rather than failures.
func (c *Client) doRequest(ctx context.Context, query string, variables map[string]interface{}, result interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return catalog.Unavailablef("anilist", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return catalog.Unavailablef("anilist", err)
	}

	// AniList reports "not found" as HTTP 404 with a GraphQL error body.
	if resp.StatusCode == http.StatusNotFound {
		return catalog.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return &catalog.RejectedError{Source: "anilist", Status: resp.StatusCode, Reason: string(respBody)}
	}

	var gqlResp graphQLResponse
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return &catalog.RejectedError{Source: "anilist", Status: resp.StatusCode, Reason: fmt.Sprintf("malformed payload: %v", err)}
	}
	if len(gqlResp.Errors) > 0 {
		msgs := make([]string, len(gqlResp.Errors))
		for i, e := range gqlResp.Errors {
			if e.Status == http.StatusNotFound {
				return catalog.ErrNotFound
			}
			msgs[i] = e.Message
		}
		return &catalog.RejectedError{Source: "anilist", Status: resp.StatusCode, Reason: strings.Join(msgs, "; ")}
	}

	if err := json.Unmarshal(gqlResp.Data, result); err != nil {
		return &catalog.RejectedError{Source: "anilist", Status: resp.StatusCode, Reason: fmt.Sprintf("malformed data: %v", err)}
	}
	return nil
}
