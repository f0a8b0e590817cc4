package cache

import "time"

// retention bounds how long a stale entry survives in a store. Within this
// window a failed refresh still leaves the previous value readable; past it
// the entry is eligible for eviction.
const retention = 24 * time.Hour

// Entry is a cached payload plus the time it was stored. Freshness is judged
// by the Fetcher, not the store: stores retain entries past their freshness
// window so a failed refresh can never evict previously valid data.
type Entry struct {
	Data     []byte    `json:"data"`
	StoredAt time.Time `json:"storedAt"`
}

// Store is the persistence behind the query cache.
type Store interface {
	Get(key string) (Entry, bool)
	Set(key string, entry Entry)
	Delete(key string)
}
