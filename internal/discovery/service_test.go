package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animanga/internal/cache"
	"animanga/internal/catalog"
	"animanga/internal/catalog/anilist"
	"animanga/internal/catalog/mangadex"
	"animanga/internal/enrich"
)

// stubAniList counts calls; the discovery tests only care whether enrichment
// reached out at all.
type stubAniList struct {
	getCalls    int32
	searchCalls int32

	mu       sync.Mutex
	lastOpts anilist.SearchOptions
	listing  []anilist.Media
}

func (s *stubAniList) GetByID(ctx context.Context, id int) (*anilist.Media, error) {
	atomic.AddInt32(&s.getCalls, 1)
	return &anilist.Media{ID: id, Title: anilist.Title{English: "Enriched"}}, nil
}

func (s *stubAniList) SearchOne(ctx context.Context, title string) (*anilist.Media, error) {
	atomic.AddInt32(&s.searchCalls, 1)
	return nil, catalog.ErrNotFound
}

func (s *stubAniList) Search(ctx context.Context, opts anilist.SearchOptions) ([]anilist.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOpts = opts
	return s.listing, nil
}

type testBackend struct {
	svc      Service
	al       *stubAniList
	requests *int32
}

func newTestService(t *testing.T, handler http.HandlerFunc) testBackend {
	t.Helper()

	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	md := mangadex.NewClient(mangadex.Options{BaseURL: server.URL, UploadsURL: "https://uploads.test", Timeout: 2 * time.Second})
	al := &stubAniList{}
	enricher := enrich.New(md, al, enrich.Options{Prefix: 2, Concurrency: 2})
	fetcher := cache.NewFetcher(cache.NewMemoryStore())

	ttls := TTLs{
		Search:   5 * time.Minute,
		Detail:   30 * time.Minute,
		Feed:     2 * time.Minute,
		Trending: time.Hour,
		Tags:     24 * time.Hour,
	}
	return testBackend{
		svc:      NewService(md, al, enricher, fetcher, ttls),
		al:       al,
		requests: &requests,
	}
}

const searchPage = `{"result":"ok","data":[
	{"id":"md-1","type":"manga","attributes":{"title":{"en":"First"},"links":{"al":"11"}},
	 "relationships":[{"id":"c1","type":"cover_art","attributes":{"fileName":"a.jpg"}}]},
	{"id":"md-2","type":"manga","attributes":{"title":{"en":"Second"},"links":{"al":"22"}}},
	{"id":"md-3","type":"manga","attributes":{"title":{"en":"Third"},"links":{"al":"33"}}}
],"limit":12,"offset":0,"total":3}`

func TestSearchMapsWithoutEnrichment(t *testing.T) {
	b := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchPage))
	})

	results, err := b.svc.Search(context.Background(), SearchOptions{Title: "first"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "md-1", results[0].MangaDex.ID)
	assert.Equal(t, "https://uploads.test/covers/md-1/a.jpg.256.jpg", results[0].CoverURL)
	for _, r := range results {
		assert.Nil(t, r.AniList, "search lists stay non-enriched")
	}
	assert.Zero(t, atomic.LoadInt32(&b.al.getCalls))
	assert.Zero(t, atomic.LoadInt32(&b.al.searchCalls))
}

func TestSearchCachedByParams(t *testing.T) {
	b := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchPage))
	})
	ctx := context.Background()

	_, err := b.svc.Search(ctx, SearchOptions{Title: "first"})
	require.NoError(t, err)
	_, err = b.svc.Search(ctx, SearchOptions{Title: "first"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(b.requests), "identical query served from cache")

	_, err = b.svc.Search(ctx, SearchOptions{Title: "first", Offset: 12})
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(b.requests), "different params are a different key")
}

func TestBrowseResolvesPrefix(t *testing.T) {
	b := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("title"))
		w.Write([]byte(`{"result":"ok","data":[
			{"id":"md-9","type":"manga","attributes":{"title":{"en":"Counterpart"}},
			 "relationships":[{"id":"c9","type":"cover_art","attributes":{"fileName":"b.jpg"}}]}
		],"limit":1,"offset":0,"total":1}`))
	})
	b.al.listing = []anilist.Media{
		{ID: 1, Title: anilist.Title{English: "One"}},
		{ID: 2, Title: anilist.Title{English: "Two"}},
		{ID: 3, Title: anilist.Title{English: "Three"}},
	}

	results, err := b.svc.Browse(context.Background(), BrowseOptions{Sort: "POPULARITY_DESC"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Prefix of 2 gets a MangaDex counterpart; the tail stays AniList-only.
	assert.NotNil(t, results[0].MangaDex)
	assert.Equal(t, "md-9", results[0].MangaDex.ID)
	assert.Equal(t, "https://uploads.test/covers/md-9/b.jpg.256.jpg", results[0].CoverURL)
	assert.NotNil(t, results[1].MangaDex)
	assert.Nil(t, results[2].MangaDex)
	assert.NotNil(t, results[2].AniList)
	assert.EqualValues(t, 2, atomic.LoadInt32(b.requests))

	assert.Equal(t, "POPULARITY_DESC", b.al.lastOpts.Sort)
}

func TestBrowseCachedByParams(t *testing.T) {
	b := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"ok","data":[],"limit":1,"offset":0,"total":0}`))
	})
	b.al.listing = []anilist.Media{{ID: 1, Title: anilist.Title{English: "One"}}}
	ctx := context.Background()

	_, err := b.svc.Browse(ctx, BrowseOptions{Search: "one", Genres: []string{"Action"}})
	require.NoError(t, err)
	assert.Equal(t, "one", b.al.lastOpts.Search)
	assert.Equal(t, []string{"Action"}, b.al.lastOpts.Genres)
	first := atomic.LoadInt32(b.requests)

	_, err = b.svc.Browse(ctx, BrowseOptions{Search: "one", Genres: []string{"Action"}})
	require.NoError(t, err)
	assert.Equal(t, first, atomic.LoadInt32(b.requests), "identical query served from cache")

	_, err = b.svc.Browse(ctx, BrowseOptions{Search: "one", Genres: []string{"Action"}, Page: 2})
	require.NoError(t, err)
	assert.Greater(t, atomic.LoadInt32(b.requests), first, "different page is a different key")
}

func TestTrendingEnrichesPrefix(t *testing.T) {
	b := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "desc", r.URL.Query().Get("order[followedCount]"))
		assert.NotEmpty(t, r.URL.Query().Get("createdAtSince"))
		w.Write([]byte(searchPage))
	})

	results, err := b.svc.Trending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Prefix of 2 gets the cross-referenced AniList side; the tail does not.
	assert.NotNil(t, results[0].AniList)
	assert.NotNil(t, results[1].AniList)
	assert.Nil(t, results[2].AniList)
	assert.EqualValues(t, 2, atomic.LoadInt32(&b.al.getCalls))
}

func TestDetailCachedByRecordID(t *testing.T) {
	b := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/manga/md-1", r.URL.Path)
		w.Write([]byte(`{"result":"ok","data":{"id":"md-1","type":"manga","attributes":{"title":{"en":"First"}}}}`))
	})
	ctx := context.Background()

	record, err := b.svc.Detail(ctx, "md-1")
	require.NoError(t, err)
	assert.Equal(t, "md-1", record.MangaDex.ID)

	_, err = b.svc.Detail(ctx, "md-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(b.requests))
}

func TestDetailRejectsEmptyID(t *testing.T) {
	b := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := b.svc.Detail(context.Background(), "")
	assert.Error(t, err)
}

func TestRecentChaptersEmbedsParent(t *testing.T) {
	b := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chapter", r.URL.Path)
		w.Write([]byte(`{"result":"ok","data":[
			{"id":"chap-1","type":"chapter","attributes":{"chapter":"12"},
			 "relationships":[{"id":"md-1","type":"manga","attributes":{"title":{"en":"Parent"}}}]}
		],"limit":20,"offset":0,"total":1}`))
	})

	recent, err := b.svc.RecentChapters(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "chap-1", recent[0].Chapter.ID)
	assert.Equal(t, "md-1", recent[0].Manga.ID)
	assert.Equal(t, "Parent", recent[0].Manga.Attributes.Title["en"])
}

func TestTagsCached(t *testing.T) {
	b := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"ok","data":[{"id":"tag-1","type":"tag","attributes":{"name":{"en":"Action"},"group":"genre"}}]}`))
	})
	ctx := context.Background()

	tags, err := b.svc.Tags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Action", tags[0].Attributes.Name["en"])

	_, err = b.svc.Tags(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(b.requests))
}
