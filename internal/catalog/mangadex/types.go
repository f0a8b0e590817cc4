package mangadex

import "fmt"

// MangaList represents the envelope from GET /manga
type MangaList struct {
	Result string  `json:"result"`
	Data   []Manga `json:"data"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Total  int     `json:"total"`
}

type mangaResponse struct {
	Result string `json:"result"`
	Data   Manga  `json:"data"`
}

// Manga represents a single manga entry from the API
type Manga struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Attributes    MangaAttributes `json:"attributes"`
	Relationships []Relationship  `json:"relationships"`
}

// MangaAttributes contains manga metadata
type MangaAttributes struct {
	Title         map[string]string `json:"title"`
	Description   map[string]string `json:"description"`
	Links         map[string]string `json:"links"`
	Status        string            `json:"status"` // "ongoing", "completed", "hiatus", "cancelled"
	ContentRating string            `json:"contentRating"`
	Year          int               `json:"year"`
	LastChapter   string            `json:"lastChapter"`
	Tags          []Tag             `json:"tags"`
	CreatedAt     string            `json:"createdAt"`
	UpdatedAt     string            `json:"updatedAt"`
}

// Relationship represents related entities (author, artist, cover_art, manga)
type Relationship struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Tag represents a genre or theme tag
type Tag struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Attributes TagAttributes `json:"attributes"`
}

// TagAttributes contains tag metadata
type TagAttributes struct {
	Name  map[string]string `json:"name"`
	Group string            `json:"group"` // "genre", "theme", "format"
}

// ChapterList represents the envelope from feed and chapter endpoints
type ChapterList struct {
	Result string    `json:"result"`
	Data   []Chapter `json:"data"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Total  int       `json:"total"`
}

// Chapter represents a single chapter entry. Volume and chapter numbers come
// back as strings and may be empty or non-numeric; no ordering is implied.
type Chapter struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Attributes    ChapterAttributes `json:"attributes"`
	Relationships []Relationship    `json:"relationships"`
}

// ChapterAttributes contains chapter metadata
type ChapterAttributes struct {
	Volume             string `json:"volume"`
	Chapter            string `json:"chapter"`
	Title              string `json:"title"`
	TranslatedLanguage string `json:"translatedLanguage"`
	ExternalURL        string `json:"externalUrl"`
	PublishAt          string `json:"publishAt"`
	ReadableAt         string `json:"readableAt"`
	Pages              int    `json:"pages"`
}

type tagListResponse struct {
	Result string `json:"result"`
	Data   []Tag  `json:"data"`
}

// PageManifest is the GET /at-home/server/{chapterId} response. Page image
// URLs are assembled from baseUrl, the quality tier and the chapter hash.
type PageManifest struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash      string   `json:"hash"`
		Data      []string `json:"data"`
		DataSaver []string `json:"dataSaver"`
	} `json:"chapter"`
}

// Quality selects a page tier in a manifest.
type Quality string

const (
	QualityData      Quality = "data"
	QualityDataSaver Quality = "data-saver"
)

// Pages returns the filename list for a quality tier.
func (m *PageManifest) Pages(q Quality) []string {
	if q == QualityDataSaver {
		return m.Chapter.DataSaver
	}
	return m.Chapter.Data
}

// PageURL builds the full image URL for one page filename.
func (m *PageManifest) PageURL(q Quality, fileName string) string {
	return fmt.Sprintf("%s/%s/%s/%s", m.BaseURL, q, m.Chapter.Hash, fileName)
}

// ============================================
// EXTRACT HELPERS
// ============================================

// PreferredTitle extracts the display title, preferring English.
func (m *Manga) PreferredTitle() string {
	if t, ok := m.Attributes.Title["en"]; ok && t != "" {
		return t
	}
	for _, t := range m.Attributes.Title {
		return t
	}
	return ""
}

// PreferredDescription extracts the description, preferring English.
func (m *Manga) PreferredDescription() string {
	if d, ok := m.Attributes.Description["en"]; ok && d != "" {
		return d
	}
	for _, d := range m.Attributes.Description {
		return d
	}
	return ""
}

// AniListLink returns the embedded AniList cross-reference ID, if present.
// MangaDex stores it under the "al" key of the links map.
func (m *Manga) AniListLink() (string, bool) {
	if m.Attributes.Links == nil {
		return "", false
	}
	id, ok := m.Attributes.Links["al"]
	return id, ok && id != ""
}

// CoverFileName returns the cover art filename from relationships, if the
// cover_art relationship was included with attributes.
func (m *Manga) CoverFileName() (string, bool) {
	for _, rel := range m.Relationships {
		if rel.Type != "cover_art" || rel.Attributes == nil {
			continue
		}
		if name, ok := rel.Attributes["fileName"].(string); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// AuthorName returns the author name from relationships, if included.
func (m *Manga) AuthorName() (string, bool) {
	for _, rel := range m.Relationships {
		if rel.Type != "author" || rel.Attributes == nil {
			continue
		}
		if name, ok := rel.Attributes["name"].(string); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// ParentManga returns the embedded manga relationship of a chapter. List-view
// relationships carry minimal attributes, so only the ID and the title map
// (when present) survive.
func (ch *Chapter) ParentManga() (Manga, bool) {
	for _, rel := range ch.Relationships {
		if rel.Type != "manga" {
			continue
		}
		parent := Manga{ID: rel.ID, Type: "manga"}
		if rel.Attributes != nil {
			if raw, ok := rel.Attributes["title"].(map[string]interface{}); ok {
				parent.Attributes.Title = make(map[string]string, len(raw))
				for lang, v := range raw {
					if s, ok := v.(string); ok {
						parent.Attributes.Title[lang] = s
					}
				}
			}
		}
		return parent, true
	}
	return Manga{}, false
}

// ScanlationGroup returns the scanlation group name attributed to a chapter.
func (ch *Chapter) ScanlationGroup() (string, bool) {
	for _, rel := range ch.Relationships {
		if rel.Type != "scanlation_group" || rel.Attributes == nil {
			continue
		}
		if name, ok := rel.Attributes["name"].(string); ok && name != "" {
			return name, true
		}
	}
	return "", false
}
