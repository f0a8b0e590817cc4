package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"animanga/internal/cache"
	"animanga/internal/catalog"
	"animanga/internal/catalog/anilist"
	"animanga/internal/catalog/mangadex"
	"animanga/internal/enrich"
)

// SearchOptions describes a discovery search from the UI.
type SearchOptions struct {
	Title        string
	IncludedTags []string
	Limit        int
	Offset       int
}

// BrowseOptions describes an AniList-backed browse query: free-text search,
// genre filters, and a named sort over paged results.
type BrowseOptions struct {
	Search  string
	Genres  []string
	Sort    string
	Page    int
	PerPage int
}

// AniListSearcher is the slice of the AniList client the browse path needs.
type AniListSearcher interface {
	Search(ctx context.Context, opts anilist.SearchOptions) ([]anilist.Media, error)
}

// RecentChapter pairs a chapter with the minimal parent manga embedded in its
// relationships.
type RecentChapter struct {
	Chapter mangadex.Chapter `json:"chapter"`
	Manga   mangadex.Manga   `json:"manga"`
}

// TTLs carries the per-query-class freshness windows.
type TTLs struct {
	Search   time.Duration
	Detail   time.Duration
	Feed     time.Duration
	Trending time.Duration
	Tags     time.Duration
}

// Service is the read surface the API handlers consume.
type Service interface {
	Search(ctx context.Context, opts SearchOptions) ([]*enrich.EnrichedManga, error)
	Browse(ctx context.Context, opts BrowseOptions) ([]*enrich.EnrichedManga, error)
	Trending(ctx context.Context, limit int) ([]*enrich.EnrichedManga, error)
	Detail(ctx context.Context, rawID string) (*enrich.EnrichedManga, error)
	Feed(ctx context.Context, mangaID string, limit, offset int) ([]mangadex.Chapter, error)
	RecentChapters(ctx context.Context, limit, offset int) ([]RecentChapter, error)
	Tags(ctx context.Context) ([]mangadex.Tag, error)
	PageManifest(ctx context.Context, chapterID string) (*mangadex.PageManifest, error)
}

type service struct {
	md       *mangadex.Client
	al       AniListSearcher
	enricher *enrich.Enricher
	fetcher  *cache.Fetcher
	ttls     TTLs
}

// NewService wires the catalog clients behind the query cache.
func NewService(md *mangadex.Client, al AniListSearcher, enricher *enrich.Enricher, fetcher *cache.Fetcher, ttls TTLs) Service {
	return &service{md: md, al: al, enricher: enricher, fetcher: fetcher, ttls: ttls}
}

// cached runs fn behind the query cache, marshaling results as JSON. The key
// is the operation name plus the full encoded parameter set.
func cached[T any](ctx context.Context, f *cache.Fetcher, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	data, err := f.Do(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	})
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("decode cached value for %s: %w", key, err)
	}
	return out, nil
}

// Search lists manga without deep enrichment: one upstream call per page,
// never one per item.
func (s *service) Search(ctx context.Context, opts SearchOptions) ([]*enrich.EnrichedManga, error) {
	params := mangadex.SearchParams{
		Title:        opts.Title,
		IncludedTags: opts.IncludedTags,
		Limit:        opts.Limit,
		Offset:       opts.Offset,
	}
	key := "search:" + params.Values().Encode()
	return cached(ctx, s.fetcher, key, s.ttls.Search, func(ctx context.Context) ([]*enrich.EnrichedManga, error) {
		page, err := s.md.Search(ctx, params)
		if err != nil {
			return nil, err
		}
		out := make([]*enrich.EnrichedManga, 0, len(page.Data))
		for i := range page.Data {
			out = append(out, s.enricher.Map(&page.Data[i]))
		}
		return out, nil
	})
}

// Browse lists titles from the AniList catalog: popularity-ranked by default,
// free-text or genre-filtered on request. The list prefix gets a MangaDex
// counterpart resolved so the reader can jump straight to chapters.
func (s *service) Browse(ctx context.Context, opts BrowseOptions) ([]*enrich.EnrichedManga, error) {
	params := anilist.SearchOptions{
		Search:  opts.Search,
		Genres:  opts.Genres,
		Sort:    opts.Sort,
		Page:    opts.Page,
		PerPage: opts.PerPage,
	}
	values := url.Values{
		"page":    []string{strconv.Itoa(params.Page)},
		"perPage": []string{strconv.Itoa(params.PerPage)},
	}
	if params.Search != "" {
		values.Set("search", params.Search)
	}
	if len(params.Genres) > 0 {
		values["genres"] = params.Genres
	}
	if params.Sort != "" {
		values.Set("sort", params.Sort)
	}
	key := "browse:" + values.Encode()
	return cached(ctx, s.fetcher, key, s.ttls.Search, func(ctx context.Context) ([]*enrich.EnrichedManga, error) {
		list, err := s.al.Search(ctx, params)
		if err != nil {
			return nil, err
		}
		return s.enricher.ResolveList(ctx, list), nil
	})
}

// Trending returns recently created popular titles, with deep enrichment for
// the list prefix only.
func (s *service) Trending(ctx context.Context, limit int) ([]*enrich.EnrichedManga, error) {
	if limit <= 0 {
		limit = 10
	}
	params := mangadex.SearchParams{
		Limit:              limit,
		OrderFollowedCount: true,
		CreatedAtSince:     time.Now().AddDate(0, 0, -30),
	}
	key := "trending:" + params.Values().Encode()
	return cached(ctx, s.fetcher, key, s.ttls.Trending, func(ctx context.Context) ([]*enrich.EnrichedManga, error) {
		page, err := s.md.Search(ctx, params)
		if err != nil {
			return nil, err
		}
		return s.enricher.EnrichList(ctx, page.Data), nil
	})
}

// Detail resolves a dual-namespace identifier into an enriched record.
func (s *service) Detail(ctx context.Context, rawID string) (*enrich.EnrichedManga, error) {
	id, err := catalog.ParseID(rawID)
	if err != nil {
		return nil, err
	}
	key := "detail:" + id.String()
	return cached(ctx, s.fetcher, key, s.ttls.Detail, func(ctx context.Context) (*enrich.EnrichedManga, error) {
		return s.enricher.Detail(ctx, id)
	})
}

func (s *service) Feed(ctx context.Context, mangaID string, limit, offset int) ([]mangadex.Chapter, error) {
	params := mangadex.FeedParams{Limit: limit, Offset: offset}
	key := "feed:" + mangaID + ":" + params.Values().Encode()
	return cached(ctx, s.fetcher, key, s.ttls.Feed, func(ctx context.Context) ([]mangadex.Chapter, error) {
		return s.md.GetFeed(ctx, mangaID, params)
	})
}

func (s *service) RecentChapters(ctx context.Context, limit, offset int) ([]RecentChapter, error) {
	if limit <= 0 {
		limit = 20
	}
	key := "recent:" + url.Values{
		"limit":  []string{strconv.Itoa(limit)},
		"offset": []string{strconv.Itoa(offset)},
	}.Encode()
	return cached(ctx, s.fetcher, key, s.ttls.Feed, func(ctx context.Context) ([]RecentChapter, error) {
		chapters, err := s.md.GetRecentChapters(ctx, limit, offset)
		if err != nil {
			return nil, err
		}
		out := make([]RecentChapter, 0, len(chapters))
		for _, ch := range chapters {
			parent, _ := ch.ParentManga()
			out = append(out, RecentChapter{Chapter: ch, Manga: parent})
		}
		return out, nil
	})
}

func (s *service) Tags(ctx context.Context) ([]mangadex.Tag, error) {
	return cached(ctx, s.fetcher, "tags", s.ttls.Tags, func(ctx context.Context) ([]mangadex.Tag, error) {
		return s.md.GetTags(ctx)
	})
}

func (s *service) PageManifest(ctx context.Context, chapterID string) (*mangadex.PageManifest, error) {
	key := "pages:" + chapterID
	return cached(ctx, s.fetcher, key, s.ttls.Detail, func(ctx context.Context) (*mangadex.PageManifest, error) {
		return s.md.GetPageManifest(ctx, chapterID)
	})
}
