// Package scratchfs stores short-lived media files (thumbnails, downloaded
// videos) on the local disk while they are attached to outbound messages.
package scratchfs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/memohai/ytbot/internal/media"
)

var (
	// ErrIO indicates a local disk failure.
	ErrIO = errors.New("scratch io failure")
	// ErrDownload indicates a streamed download failed; the partial file is gone.
	ErrDownload = errors.New("scratch download failed")
)

const (
	thumbPrefix = "thumb_"
	videoPrefix = "video_"
)

// Provider writes scratch files under a single root directory.
type Provider struct {
	root     string
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	logger   *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient overrides the client used by StreamDownload.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.client = client
		}
	}
}

// WithDownloadTimeout bounds a whole StreamDownload call. It keeps any
// client set by WithHTTPClient, in either option order.
func WithDownloadTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithMaxBytes caps the size of a streamed download.
func WithMaxBytes(n int64) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// New creates a scratch provider rooted at dir, creating it when missing.
func New(log *slog.Logger, dir string, opts ...Option) (*Provider, error) {
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(strings.TrimSpace(dir))
	if err != nil {
		return nil, fmt.Errorf("resolve scratch root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create scratch root: %v", ErrIO, err)
	}
	p := &Provider{
		root:     abs,
		client:   &http.Client{Timeout: 10 * time.Minute},
		maxBytes: media.MaxAssetBytes,
		logger:   log.With(slog.String("component", "scratchfs")),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.timeout > 0 {
		client := *p.client
		client.Timeout = p.timeout
		p.client = &client
	}
	return p, nil
}

// Root returns the absolute scratch directory.
func (p *Provider) Root() string {
	return p.root
}

// Path resolves a scratch name to an absolute path inside the root.
func (p *Provider) Path(name string) (string, error) {
	clean := filepath.Clean(strings.TrimSpace(name))
	if clean == "." || clean == "" {
		return "", fmt.Errorf("scratch name is required")
	}
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: absolute name %s", media.ErrPathTraversal, name)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", media.ErrPathTraversal, name)
	}
	joined := filepath.Join(p.root, clean)
	if !strings.HasPrefix(joined, p.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes scratch root", media.ErrPathTraversal, name)
	}
	return joined, nil
}

// SaveBytes writes data to the named scratch file and returns its path.
func (p *Provider) SaveBytes(_ context.Context, name string, data []byte) (string, error) {
	dest, err := p.Path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("%w: create parent dir: %v", ErrIO, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("%w: write file: %v", ErrIO, err)
	}
	return dest, nil
}

// StreamDownload streams the body of a GET on url into the named scratch
// file. On any failure the partial file is removed and ErrDownload returned.
func (p *Provider) StreamDownload(ctx context.Context, url, name string) (string, error) {
	dest, err := p.Path(name)
	if err != nil {
		return "", err
	}
	if err := p.stream(ctx, url, dest); err != nil {
		if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
			p.logger.Warn("remove partial download failed", slog.String("path", dest), slog.Any("error", rmErr))
		}
		return "", fmt.Errorf("%w: %w", ErrDownload, err)
	}
	return dest, nil
}

func (p *Provider) stream(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := media.CopyWithLimit(f, resp.Body, p.maxBytes); err != nil {
		_ = f.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// Delete removes a scratch file. Failures are logged and swallowed.
func (p *Provider) Delete(_ context.Context, name string) {
	dest, err := p.Path(name)
	if err != nil {
		p.logger.Warn("scratch delete rejected", slog.String("name", name), slog.Any("error", err))
		return
	}
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		p.logger.Warn("scratch delete failed", slog.String("path", dest), slog.Any("error", err))
	}
}

// Sweep removes scratch files whose modification time is older than ttl.
// It returns the number of files removed.
func (p *Provider) Sweep(ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return 0, fmt.Errorf("%w: read scratch root: %v", ErrIO, err)
	}
	removed := 0
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, thumbPrefix) && !strings.HasPrefix(name, videoPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= ttl {
			continue
		}
		full := filepath.Join(p.root, name)
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			p.logger.Warn("sweep remove failed", slog.String("path", full), slog.Any("error", err))
			continue
		}
		removed++
	}
	if removed > 0 {
		p.logger.Info("swept stale scratch files", slog.Int("removed", removed))
	}
	return removed, nil
}

// Probe checks that the scratch root accepts writes.
func (p *Provider) Probe(_ context.Context) error {
	f, err := os.CreateTemp(p.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
