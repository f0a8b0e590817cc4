package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"animanga/internal/catalog"
)

// FetchFunc produces the value for a cache key, typically by calling an
// upstream catalog.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Fetcher layers freshness windows, single-flight de-duplication and a
// bounded retry over a Store. Each distinct query key carries its own
// freshness window, passed per call.
type Fetcher struct {
	store Store
	group singleflight.Group
	now   func() time.Time
}

func NewFetcher(store Store) *Fetcher {
	return &Fetcher{store: store, now: time.Now}
}

// Do returns the cached value for key when it is within its freshness window,
// otherwise fetches it. Concurrent callers for the same key share one
// underlying fetch. Network-level failures are retried once; rejections are
// not. On failure any previously cached value for the key is left in place
// and the error surfaces to all waiting callers.
func (f *Fetcher) Do(ctx context.Context, key string, freshFor time.Duration, fetch FetchFunc) ([]byte, error) {
	if entry, ok := f.store.Get(key); ok && f.now().Sub(entry.StoredAt) < freshFor {
		return entry.Data, nil
	}

	value, err, _ := f.group.Do(key, func() (interface{}, error) {
		// A concurrent flight may have refreshed the key while this caller
		// was waiting on the group.
		if entry, ok := f.store.Get(key); ok && f.now().Sub(entry.StoredAt) < freshFor {
			return entry.Data, nil
		}

		data, err := fetch(ctx)
		if err != nil && errors.Is(err, catalog.ErrUnavailable) {
			data, err = fetch(ctx)
		}
		if err != nil {
			return nil, err
		}

		f.store.Set(key, Entry{Data: data, StoredAt: f.now()})
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]byte), nil
}

// Invalidate drops the cached value for a key.
func (f *Fetcher) Invalidate(key string) {
	f.store.Delete(key)
}
