package library

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileStore persists the library as one JSON document per user under a base
// directory. It backs the demo/local-only mode; a single process owns the
// files, so a mutex is enough.
type FileStore struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

type libraryDocument struct {
	Entries []Entry `json:"entries"`
}

func (s *FileStore) path(userID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("library_%s.json", userID))
}

// load reads the user's document. Read failures degrade to an empty library.
func (s *FileStore) load(userID string) libraryDocument {
	raw, err := os.ReadFile(s.path(userID))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Library] read %s: %v", s.path(userID), err)
		}
		return libraryDocument{}
	}
	var doc libraryDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Printf("[Library] corrupt document %s: %v", s.path(userID), err)
		return libraryDocument{}
	}
	return doc
}

func (s *FileStore) save(userID string, doc libraryDocument) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal library: %w", err)
	}
	tmp := s.path(userID) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write library: %w", err)
	}
	if err := os.Rename(tmp, s.path(userID)); err != nil {
		return fmt.Errorf("write library: %w", err)
	}
	return nil
}

func (s *FileStore) Upsert(ctx context.Context, userID string, entry Entry) error {
	if entry.MangaID == "" {
		return fmt.Errorf("manga id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(userID)
	updated := false
	for i, e := range doc.Entries {
		if e.MangaID == entry.MangaID {
			doc.Entries[i] = merge(e, entry, s.now())
			updated = true
			break
		}
	}
	if !updated {
		doc.Entries = append(doc.Entries, merge(Entry{}, entry, s.now()))
	}
	return s.save(userID, doc)
}

func (s *FileStore) UpdateProgress(ctx context.Context, userID, mangaID, chapterID, chapterNumber string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(userID)
	for i, e := range doc.Entries {
		if e.MangaID == mangaID {
			doc.Entries[i] = applyProgress(e, true, mangaID, chapterID, chapterNumber, page, s.now())
			return s.save(userID, doc)
		}
	}
	doc.Entries = append(doc.Entries, applyProgress(Entry{}, false, mangaID, chapterID, chapterNumber, page, s.now()))
	return s.save(userID, doc)
}

func (s *FileStore) Get(ctx context.Context, userID, mangaID string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.load(userID).Entries {
		if e.MangaID == mangaID {
			entry := e
			return &entry, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) List(ctx context.Context, userID string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load(userID).Entries
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].UpdatedAt.After(entries[j].UpdatedAt)
	})
	return entries, nil
}

func (s *FileStore) Remove(ctx context.Context, userID, mangaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(userID)
	kept := doc.Entries[:0]
	for _, e := range doc.Entries {
		if e.MangaID != mangaID {
			kept = append(kept, e)
		}
	}
	doc.Entries = kept
	return s.save(userID, doc)
}
