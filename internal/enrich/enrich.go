package enrich

import (
	"context"
	"errors"
	"log"
	"strconv"

	"golang.org/x/sync/errgroup"

	"animanga/internal/catalog"
	"animanga/internal/catalog/anilist"
	"animanga/internal/catalog/mangadex"
)

// MangaDexSource is the slice of the MangaDex client the enricher needs.
type MangaDexSource interface {
	GetByID(ctx context.Context, id string) (*mangadex.Manga, error)
	Search(ctx context.Context, params mangadex.SearchParams) (*mangadex.MangaList, error)
	CoverURL(mangaID, fileName string) string
}

// AniListSource is the slice of the AniList client the enricher needs.
type AniListSource interface {
	GetByID(ctx context.Context, id int) (*anilist.Media, error)
	SearchOne(ctx context.Context, title string) (*anilist.Media, error)
}

// EnrichedManga merges one MangaDex record and one AniList record. At least
// one side is always present; consumers must never assume both are, even
// after a successful reconciliation, since title-search matches are
// unverified.
type EnrichedManga struct {
	MangaDex *mangadex.Manga   `json:"mangadex,omitempty"`
	AniList  *anilist.Media    `json:"anilist,omitempty"`
	CoverURL string            `json:"coverUrl,omitempty"`
	CrossRef *catalog.RecordID `json:"-"`
}

// Options tunes the list-enrichment policy. Prefix and the AniList client's
// pacing exist because deep enrichment of a whole list would exceed the
// upstream rate ceiling; they are tunables, not correctness features.
type Options struct {
	Prefix      int // max list items that get deep enrichment
	Concurrency int // max in-flight enrichment calls
}

// Enricher cross-resolves records between the two catalogs.
type Enricher struct {
	md          MangaDexSource
	al          AniListSource
	prefix      int
	concurrency int
}

// New creates an Enricher over the two catalog clients.
func New(md MangaDexSource, al AniListSource, opts Options) *Enricher {
	if opts.Prefix <= 0 {
		opts.Prefix = 5
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	return &Enricher{md: md, al: al, prefix: opts.Prefix, concurrency: opts.Concurrency}
}

// Map produces the non-enriched shape for a MangaDex record: cover resolved,
// AniList side absent. No external calls.
func (e *Enricher) Map(m *mangadex.Manga) *EnrichedManga {
	out := &EnrichedManga{MangaDex: m}
	if fileName, ok := m.CoverFileName(); ok {
		out.CoverURL = e.md.CoverURL(m.ID, fileName)
	}
	return out
}

// Enrich resolves the AniList counterpart of a MangaDex record. The explicit
// cross-reference link is authoritative when present; otherwise a single
// title search decides. A miss or upstream failure degrades to the
// non-enriched shape and is never an error.
func (e *Enricher) Enrich(ctx context.Context, m *mangadex.Manga) *EnrichedManga {
	out := e.Map(m)

	if raw, ok := m.AniListLink(); ok {
		alID, err := strconv.Atoi(raw)
		if err == nil {
			media, err := e.al.GetByID(ctx, alID)
			if err == nil {
				out.AniList = media
				ref := catalog.AniListID(alID)
				out.CrossRef = &ref
				return out
			}
			if !errors.Is(err, catalog.ErrNotFound) {
				log.Printf("[Enrich] AniList lookup failed for %s (al=%d): %v", m.ID, alID, err)
			}
			// A dead link is a miss; fall through to title search.
		}
	}

	title := m.PreferredTitle()
	if title == "" {
		return out
	}
	media, err := e.al.SearchOne(ctx, title)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			log.Printf("[Enrich] AniList search failed for %q: %v", title, err)
		}
		return out
	}
	out.AniList = media
	return out
}

// MapMedia produces the non-enriched shape for an AniList record: its own
// cover, MangaDex side absent. No external calls.
func (e *Enricher) MapMedia(media *anilist.Media) *EnrichedManga {
	out := &EnrichedManga{AniList: media}
	if media.CoverImage.Large != "" {
		out.CoverURL = media.CoverImage.Large
	}
	return out
}

// ResolveMangaDex finds the MangaDex counterpart of an AniList record, needed
// to reach a readable chapter feed. AniList embeds no MangaDex link, so this
// is always a title-based best-effort match; a miss leaves the MangaDex side
// absent.
func (e *Enricher) ResolveMangaDex(ctx context.Context, media *anilist.Media) *EnrichedManga {
	out := e.MapMedia(media)

	title := media.PreferredTitle()
	if title == "" {
		return out
	}
	page, err := e.md.Search(ctx, mangadex.SearchParams{Title: title, Limit: 1})
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			log.Printf("[Enrich] MangaDex search failed for %q: %v", title, err)
		}
		return out
	}
	if len(page.Data) == 0 {
		return out
	}
	m := page.Data[0]
	out.MangaDex = &m
	if fileName, ok := m.CoverFileName(); ok {
		out.CoverURL = e.md.CoverURL(m.ID, fileName)
	}
	return out
}

// EnrichList enriches at most the configured prefix of a result list and maps
// the remainder without external calls. Enrichment runs as a bounded fan-out;
// a failed item degrades to its non-enriched shape without failing the batch.
func (e *Enricher) EnrichList(ctx context.Context, list []mangadex.Manga) []*EnrichedManga {
	out := make([]*EnrichedManga, len(list))

	deep := e.prefix
	if deep > len(list) {
		deep = len(list)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := 0; i < deep; i++ {
		i := i
		g.Go(func() error {
			out[i] = e.Enrich(gctx, &list[i])
			return nil
		})
	}
	for i := deep; i < len(list); i++ {
		out[i] = e.Map(&list[i])
	}
	// Workers never return errors; Wait only fences the fan-out.
	_ = g.Wait()
	return out
}

// ResolveList is EnrichList's mirror image for AniList-first result lists:
// at most the configured prefix gets a MangaDex counterpart resolved, the
// remainder is mapped without external calls. A failed item degrades to its
// non-resolved shape without failing the batch.
func (e *Enricher) ResolveList(ctx context.Context, list []anilist.Media) []*EnrichedManga {
	out := make([]*EnrichedManga, len(list))

	deep := e.prefix
	if deep > len(list) {
		deep = len(list)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := 0; i < deep; i++ {
		i := i
		g.Go(func() error {
			out[i] = e.ResolveMangaDex(gctx, &list[i])
			return nil
		})
	}
	for i := deep; i < len(list); i++ {
		out[i] = e.MapMedia(&list[i])
	}
	_ = g.Wait()
	return out
}

// Detail resolves a dual-namespace identifier into an enriched record. A
// cross-reference that 404s on the other catalog yields a partial record,
// not an error; only a failure of the originating catalog surfaces.
func (e *Enricher) Detail(ctx context.Context, id catalog.RecordID) (*EnrichedManga, error) {
	switch id.Kind {
	case catalog.KindAniList:
		media, err := e.al.GetByID(ctx, id.AL)
		if err != nil {
			return nil, err
		}
		return e.ResolveMangaDex(ctx, media), nil
	default:
		m, err := e.md.GetByID(ctx, id.MD)
		if err != nil {
			return nil, err
		}
		return e.Enrich(ctx, m), nil
	}
}
