package anilist

import (
	"html"
	"regexp"
	"strings"
)

// Media represents a manga entry from AniList with the character roster
// already flattened.
type Media struct {
	ID           int         `json:"id"`
	IDMal        *int        `json:"idMal,omitempty"`
	Title        Title       `json:"title"`
	Description  string      `json:"description"`
	AverageScore *int        `json:"averageScore,omitempty"` // 0-100
	Favourites   int         `json:"favourites"`
	Status       string      `json:"status"`
	Format       string      `json:"format"`
	Genres       []string    `json:"genres"`
	CoverImage   CoverImage  `json:"coverImage"`
	BannerImage  string      `json:"bannerImage,omitempty"`
	Characters   []Character `json:"characters,omitempty"`
}

// Title contains the romaji/english/native variants. AniList does not expose
// a full language map the way MangaDex does.
type Title struct {
	Romaji  string `json:"romaji"`
	English string `json:"english"`
	Native  string `json:"native"`
}

// CoverImage contains cover URLs at multiple resolutions.
type CoverImage struct {
	ExtraLarge string `json:"extraLarge"`
	Large      string `json:"large"`
	Medium     string `json:"medium"`
}

// Character is one entry of the ordered character roster.
type Character struct {
	Name  string `json:"name"`
	Image string `json:"image"`
	Role  string `json:"role"`
}

// SearchOptions describes a discovery search against AniList.
type SearchOptions struct {
	Search  string
	Genres  []string
	Sort    string // TRENDING_DESC, POPULARITY_DESC, SCORE_DESC, FAVOURITES_DESC, UPDATED_AT_DESC
	Page    int
	PerPage int
}

func (o SearchOptions) page() int {
	if o.Page <= 0 {
		return 1
	}
	return o.Page
}

func (o SearchOptions) perPage() int {
	if o.PerPage <= 0 {
		return 20
	}
	return o.PerPage
}

func (o SearchOptions) sort() string {
	if strings.TrimSpace(o.Search) != "" {
		// Relevance ranking when search text is present.
		return "SEARCH_MATCH"
	}
	if o.Sort == "" {
		return "POPULARITY_DESC"
	}
	return o.Sort
}

// PreferredTitle returns the display title: english, then romaji, then native.
func (m *Media) PreferredTitle() string {
	if m.Title.English != "" {
		return m.Title.English
	}
	if m.Title.Romaji != "" {
		return m.Title.Romaji
	}
	return m.Title.Native
}

// mediaPayload mirrors the raw GraphQL shape before character flattening.
type mediaPayload struct {
	Media
	RawCharacters struct {
		Edges []struct {
			Role string `json:"role"`
			Node struct {
				Name struct {
					Full string `json:"full"`
				} `json:"name"`
				Image struct {
					Medium string `json:"medium"`
				} `json:"image"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"characters"`
}

func (p *mediaPayload) flatten() *Media {
	m := p.Media
	m.Characters = nil
	for _, edge := range p.RawCharacters.Edges {
		m.Characters = append(m.Characters, Character{
			Name:  edge.Node.Name.Full,
			Image: edge.Node.Image.Medium,
			Role:  edge.Role,
		})
	}
	return &m
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// CleanDescription strips the HTML markup AniList embeds in descriptions and
// decodes entities.
func CleanDescription(desc string) string {
	cleaned := htmlTagRe.ReplaceAllString(desc, "")
	cleaned = html.UnescapeString(cleaned)
	return strings.TrimSpace(cleaned)
}
