package mangadex

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SearchParams describes a GET /manga query. Array parameters encode as
// repeated `key[]=value` pairs, nested ordering as `order[field]=direction`.
type SearchParams struct {
	Title        string
	IncludedTags []string
	Limit        int
	Offset       int

	// CreatedAtSince restricts results to recently created titles
	// (used by the trending query, last 30 days).
	CreatedAtSince time.Time

	// OrderFollowedCount forces popularity ordering regardless of title.
	OrderFollowedCount bool
}

// Values encodes the search query. When no search text and no tag filter are
// supplied the result is ordered by follower count; with search text the
// upstream's relevance ranking is left in charge.
func (p SearchParams) Values() url.Values {
	values := url.Values{}

	limit := p.Limit
	if limit <= 0 {
		limit = 12
	}
	values.Set("limit", fmt.Sprintf("%d", limit))
	values.Set("offset", fmt.Sprintf("%d", p.Offset))
	values.Add("includes[]", "cover_art")
	values.Add("includes[]", "author")
	values.Add("contentRating[]", "safe")
	values.Add("contentRating[]", "suggestive")
	values.Set("hasAvailableChapters", "true")

	title := strings.TrimSpace(p.Title)
	if title != "" {
		values.Set("title", title)
	}
	if p.OrderFollowedCount || (title == "" && len(p.IncludedTags) == 0) {
		values.Set("order[followedCount]", "desc")
	}
	for _, tag := range p.IncludedTags {
		values.Add("includedTags[]", tag)
	}
	if !p.CreatedAtSince.IsZero() {
		values.Set("createdAtSince", p.CreatedAtSince.UTC().Format("2006-01-02"))
	}
	return values
}

// FeedParams describes a GET /manga/{id}/feed query.
type FeedParams struct {
	Limit  int
	Offset int
}

// Values encodes the feed query with the reader defaults: English chapters,
// newest volume/chapter first, scanlation group attribution included.
func (p FeedParams) Values() url.Values {
	values := url.Values{}

	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	values.Set("limit", fmt.Sprintf("%d", limit))
	values.Set("offset", fmt.Sprintf("%d", p.Offset))
	values.Add("translatedLanguage[]", "en")
	values.Set("order[volume]", "desc")
	values.Set("order[chapter]", "desc")
	values.Add("contentRating[]", "safe")
	values.Add("contentRating[]", "suggestive")
	values.Add("contentRating[]", "erotica")
	values.Add("includes[]", "scanlation_group")
	return values
}
