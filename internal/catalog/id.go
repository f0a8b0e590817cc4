package catalog

import (
	"fmt"
	"strconv"
)

// Kind identifies which catalog an identifier belongs to.
type Kind string

const (
	// KindMangaDex identifiers are opaque strings (UUIDs in practice).
	KindMangaDex Kind = "mangadex"
	// KindAniList identifiers are integers.
	KindAniList Kind = "anilist"
)

// RecordID is a tagged-union identifier across the two catalogs. The two
// namespaces are kept distinct so a stringified AniList ID can never be
// mistaken for a MangaDex ID once inside the system.
type RecordID struct {
	Kind Kind
	MD   string
	AL   int
}

func MangaDexID(id string) RecordID {
	return RecordID{Kind: KindMangaDex, MD: id}
}

func AniListID(id int) RecordID {
	return RecordID{Kind: KindAniList, AL: id}
}

// ParseID classifies a raw route identifier. All-digit strings are treated as
// AniList IDs; everything else as MangaDex. This mirrors the key space the
// browser client uses and is only safe while MangaDex issues non-numeric IDs,
// so the heuristic lives here and nowhere else.
func ParseID(raw string) (RecordID, error) {
	if raw == "" {
		return RecordID{}, fmt.Errorf("empty record id")
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return AniListID(n), nil
	}
	return MangaDexID(raw), nil
}

func (id RecordID) String() string {
	switch id.Kind {
	case KindAniList:
		return strconv.Itoa(id.AL)
	default:
		return id.MD
	}
}
