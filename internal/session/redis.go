package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/memohai/ytbot/internal/videosearch"
)

const defaultKeyPrefix = "ytbot:pending:"

// RedisStore keeps entries as JSON strings with a native key expiry.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(threadID string) string {
	return s.prefix + threadID
}

func (s *RedisStore) Put(ctx context.Context, threadID string, results []videosearch.SearchResult) error {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return ErrThreadIDRequired
	}
	if results == nil {
		results = []videosearch.SearchResult{}
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(threadID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, threadID string) ([]videosearch.SearchResult, bool, error) {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil, false, ErrThreadIDRequired
	}
	raw, err := s.rdb.Get(ctx, s.key(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var results []videosearch.SearchResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false, fmt.Errorf("decode session: %w", err)
	}
	return results, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, threadID string) error {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return ErrThreadIDRequired
	}
	if err := s.rdb.Del(ctx, s.key(threadID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks connectivity to the redis server.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the underlying redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
