package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/memohai/ytbot/internal/videosearch"
)

type memoryEntry struct {
	results   []videosearch.SearchResult
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Expired entries are invisible to Get
// and reclaimed by Purge.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a store whose entries live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, threadID string, results []videosearch.SearchResult) error {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return ErrThreadIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[threadID] = memoryEntry{
		results:   cloneResults(results),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, threadID string) ([]videosearch.SearchResult, bool, error) {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return nil, false, ErrThreadIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[threadID]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, threadID)
		return nil, false, nil
	}
	return cloneResults(entry.results), true, nil
}

func (s *MemoryStore) Delete(_ context.Context, threadID string) error {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return ErrThreadIDRequired
	}
	s.mu.Lock()
	delete(s.entries, threadID)
	s.mu.Unlock()
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (s *MemoryStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
