// Package session keeps the pending search selections of each chat thread.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/memohai/ytbot/internal/videosearch"
)

// DefaultTTL is how long a listing waits for a numeric reply.
const DefaultTTL = 10 * time.Minute

// ErrThreadIDRequired is returned for blank thread ids.
var ErrThreadIDRequired = errors.New("thread id is required")

// Store maps a thread id to the results last shown in that thread.
// Put replaces any previous entry and restarts its expiry.
type Store interface {
	Put(ctx context.Context, threadID string, results []videosearch.SearchResult) error
	Get(ctx context.Context, threadID string) ([]videosearch.SearchResult, bool, error)
	Delete(ctx context.Context, threadID string) error
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

func cloneResults(in []videosearch.SearchResult) []videosearch.SearchResult {
	if in == nil {
		return nil
	}
	out := make([]videosearch.SearchResult, len(in))
	copy(out, in)
	return out
}
