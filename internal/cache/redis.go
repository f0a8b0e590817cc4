package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis, for deployments where several
// instances should share one upstream cache.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection.
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

	return &RedisStore{
		client: client,
		ctx:    context.Background(),
		prefix: "animanga:query:",
	}, nil
}

func (s *RedisStore) Get(key string) (Entry, bool) {
	raw, err := s.client.Get(s.ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return Entry{}, false
	}
	if err != nil {
		log.Printf("[Cache] redis get %s: %v", key, err)
		return Entry{}, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		log.Printf("[Cache] corrupt entry for %s: %v", key, err)
		return Entry{}, false
	}
	return entry, true
}

func (s *RedisStore) Set(key string, entry Entry) {
	raw, err := json.Marshal(entry)
	if err != nil {
		log.Printf("[Cache] marshal entry for %s: %v", key, err)
		return
	}
	if err := s.client.Set(s.ctx, s.prefix+key, raw, retention).Err(); err != nil {
		log.Printf("[Cache] redis set %s: %v", key, err)
	}
}

func (s *RedisStore) Delete(key string) {
	if err := s.client.Del(s.ctx, s.prefix+key).Err(); err != nil {
		log.Printf("[Cache] redis del %s: %v", key, err)
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
