package videosearch

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// SearchResult is one video returned by the search endpoint. Optional
// upstream fields stay nil when absent; callers choose their own defaults.
type SearchResult struct {
	Title     string    `json:"title"`
	Author    *Author   `json:"author,omitempty"`
	Duration  *Duration `json:"duration,omitempty"`
	Views     *int64    `json:"views,omitempty"`
	Thumbnail *string   `json:"thumbnail,omitempty"`
	URL       string    `json:"url"`
}

type Author struct {
	Name *string `json:"name,omitempty"`
}

type Duration struct {
	Timestamp *string `json:"timestamp,omitempty"`
}

// AuthorName returns the channel name, or "" when the upstream omitted it.
func (r SearchResult) AuthorName() string {
	if r.Author == nil {
		return ""
	}
	return stringValue(r.Author.Name)
}

// DurationText returns the display duration, or "" when absent.
func (r SearchResult) DurationText() string {
	if r.Duration == nil {
		return ""
	}
	return stringValue(r.Duration.Timestamp)
}

// ThumbnailURL returns the thumbnail URL, or "" when absent.
func (r SearchResult) ThumbnailURL() string {
	return stringValue(r.Thumbnail)
}

// UnmarshalJSON tolerates views sent as a number, a numeric string or null.
func (r *SearchResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title     string          `json:"title"`
		Author    *Author         `json:"author"`
		Duration  *Duration       `json:"duration"`
		Views     json.RawMessage `json:"views"`
		Thumbnail *string         `json:"thumbnail"`
		URL       string          `json:"url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Title = raw.Title
	r.Author = raw.Author
	r.Duration = raw.Duration
	r.Views = parseViews(raw.Views)
	r.Thumbnail = raw.Thumbnail
	r.URL = raw.URL
	return nil
}

func parseViews(raw json.RawMessage) *int64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var text string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil
		}
		text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	} else {
		text = string(raw)
	}
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int64(f)
	return &n
}

// DownloadInfo holds the direct media URLs returned by the resolver.
type DownloadInfo struct {
	High *string `json:"high,omitempty"`
	Low  *string `json:"low,omitempty"`
}

// Best returns the high quality URL, else the low one, else "".
func (d DownloadInfo) Best() string {
	if high := strings.TrimSpace(stringValue(d.High)); high != "" {
		return high
	}
	return strings.TrimSpace(stringValue(d.Low))
}

type resolveResponse struct {
	Data *DownloadInfo `json:"data"`
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
