package library

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one hash per (user, manga) entry, mirroring the layout
// used for reading-progress tracking elsewhere in the stack.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, now: time.Now}, nil
}

func entryKey(userID, mangaID string) string {
	return fmt.Sprintf("animanga:library:user:%s:manga:%s", userID, mangaID)
}

func entryFields(e Entry) map[string]any {
	return map[string]any{
		"manga_id":               e.MangaID,
		"title":                  e.Title,
		"cover_url":              e.CoverURL,
		"status":                 string(e.Status),
		"current_chapter_id":     e.CurrentChapterID,
		"current_chapter_number": e.CurrentChapterNumber,
		"current_page":           e.CurrentPage,
		"score":                  e.Score,
		"updated_at":             e.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func entryFromFields(fields map[string]string) Entry {
	e := Entry{
		MangaID:              fields["manga_id"],
		Title:                fields["title"],
		CoverURL:             fields["cover_url"],
		Status:               Status(fields["status"]),
		CurrentChapterID:     fields["current_chapter_id"],
		CurrentChapterNumber: fields["current_chapter_number"],
	}
	e.CurrentPage, _ = strconv.Atoi(fields["current_page"])
	e.Score, _ = strconv.Atoi(fields["score"])
	if ts, ok := fields["updated_at"]; ok {
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return e
}

func (s *RedisStore) read(ctx context.Context, userID, mangaID string) (Entry, bool, error) {
	fields, err := s.client.HGetAll(ctx, entryKey(userID, mangaID)).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("read library entry: %w", err)
	}
	if len(fields) == 0 {
		return Entry{}, false, nil
	}
	return entryFromFields(fields), true, nil
}

func (s *RedisStore) write(ctx context.Context, userID string, e Entry) error {
	if err := s.client.HSet(ctx, entryKey(userID, e.MangaID), entryFields(e)).Err(); err != nil {
		return fmt.Errorf("write library entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Upsert(ctx context.Context, userID string, entry Entry) error {
	if entry.MangaID == "" {
		return fmt.Errorf("manga id is required")
	}
	existing, found, err := s.read(ctx, userID, entry.MangaID)
	if err != nil {
		return err
	}
	if !found {
		existing = Entry{}
	}
	return s.write(ctx, userID, merge(existing, entry, s.now()))
}

func (s *RedisStore) UpdateProgress(ctx context.Context, userID, mangaID, chapterID, chapterNumber string, page int) error {
	existing, found, err := s.read(ctx, userID, mangaID)
	if err != nil {
		return err
	}
	return s.write(ctx, userID, applyProgress(existing, found, mangaID, chapterID, chapterNumber, page, s.now()))
}

func (s *RedisStore) Get(ctx context.Context, userID, mangaID string) (*Entry, error) {
	entry, found, err := s.read(ctx, userID, mangaID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &entry, nil
}

func (s *RedisStore) List(ctx context.Context, userID string) ([]Entry, error) {
	pattern := fmt.Sprintf("animanga:library:user:%s:manga:*", userID)
	var entries []Entry
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan library: %w", err)
		}
		for _, key := range keys {
			fields, err := s.client.HGetAll(ctx, key).Result()
			if err != nil || len(fields) == 0 {
				if err != nil {
					log.Printf("[Library] read %s: %v", key, err)
				}
				continue
			}
			entries = append(entries, entryFromFields(fields))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return entries, nil
}

func (s *RedisStore) Remove(ctx context.Context, userID, mangaID string) error {
	if err := s.client.Del(ctx, entryKey(userID, mangaID)).Err(); err != nil {
		return fmt.Errorf("remove library entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
