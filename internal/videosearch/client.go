// Package videosearch talks to the upstream video search and download
// resolver APIs.
package videosearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/memohai/ytbot/internal/media"
)

const (
	searchPath  = "/search"
	resolvePath = "/downloader/alldownloader"

	defaultTimeout = 30 * time.Second
	maxJSONBytes   = 8 * 1024 * 1024
)

// Config points the client at the two upstream services.
type Config struct {
	SearchBaseURL   string
	ResolverBaseURL string
	Timeout         time.Duration
}

// Client issues deadline-bound GET requests to the upstream APIs.
type Client struct {
	searchBase   string
	resolverBase string
	timeout      time.Duration
	http         *http.Client
	logger       *slog.Logger
}

// NewClient creates a client. A zero Timeout falls back to 30s.
func NewClient(log *slog.Logger, cfg Config, httpClient *http.Client) *Client {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		searchBase:   strings.TrimRight(strings.TrimSpace(cfg.SearchBaseURL), "/"),
		resolverBase: strings.TrimRight(strings.TrimSpace(cfg.ResolverBaseURL), "/"),
		timeout:      timeout,
		http:         httpClient,
		logger:       log.With(slog.String("component", "videosearch")),
	}
}

// Search queries the search endpoint. A null or empty body yields no results.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	reqURL, err := buildURL(c.searchBase, searchPath, "query", query)
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, "search", reqURL, maxJSONBytes)
	if err != nil {
		return nil, err
	}
	if isFalsy(body) {
		return []SearchResult{}, nil
	}
	var results []SearchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", ErrNetwork, err)
	}
	if results == nil {
		results = []SearchResult{}
	}
	c.logger.Debug("search completed", slog.String("query", query), slog.Int("results", len(results)))
	return results, nil
}

// FetchBytes downloads a small binary payload such as a thumbnail.
func (c *Client) FetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%w: empty url", ErrNetwork)
	}
	return c.get(ctx, "fetch", rawURL, media.MaxThumbnailBytes)
}

// ResolveDownload asks the resolver for direct media URLs. A response with
// neither URL is returned as an empty DownloadInfo, not an error.
func (c *Client) ResolveDownload(ctx context.Context, videoURL string) (DownloadInfo, error) {
	reqURL, err := buildURL(c.resolverBase, resolvePath, "url", videoURL)
	if err != nil {
		return DownloadInfo{}, err
	}
	body, err := c.get(ctx, "resolve", reqURL, maxJSONBytes)
	if err != nil {
		return DownloadInfo{}, err
	}
	if isFalsy(body) {
		return DownloadInfo{}, nil
	}
	var parsed resolveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return DownloadInfo{}, fmt.Errorf("%w: decode resolve response: %v", ErrNetwork, err)
	}
	if parsed.Data == nil {
		return DownloadInfo{}, nil
	}
	return *parsed.Data, nil
}

func (c *Client) get(ctx context.Context, op, reqURL string, limit int64) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: build request: %v", ErrNetwork, op, err)
	}
	req.Header.Set("Accept", "application/json, */*")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNetwork, op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, httpError(op, resp.StatusCode, body)
	}
	body, err := media.ReadAllWithLimit(resp.Body, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrNetwork, op, err)
	}
	return body, nil
}

func buildURL(base, path, key, value string) (string, error) {
	u, err := url.Parse(base + path)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base url: %v", ErrNetwork, err)
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func isFalsy(body []byte) bool {
	switch strings.TrimSpace(string(body)) {
	case "", "null", "false", "0", `""`, "[]":
		return true
	}
	return false
}
