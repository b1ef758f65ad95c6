package media

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MediaType classifies the kind of media asset.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
	MediaTypeFile  MediaType = "file"
)

// DetectMime sniffs the content type of a payload.
func DetectMime(data []byte) string {
	return normalizeMime(mimetype.Detect(data).String())
}

// DetectFileMime sniffs the content type of a file on disk. It returns
// application/octet-stream when the file cannot be read.
func DetectFileMime(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return normalizeMime(mt.String())
}

// TypeFromMime maps a MIME type to a MediaType.
func TypeFromMime(mime string) MediaType {
	mime = normalizeMime(mime)
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MediaTypeImage
	case strings.HasPrefix(mime, "video/"):
		return MediaTypeVideo
	case strings.HasPrefix(mime, "audio/"):
		return MediaTypeAudio
	default:
		return MediaTypeFile
	}
}

func normalizeMime(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, ";"); idx >= 0 {
		raw = strings.TrimSpace(raw[:idx])
	}
	return strings.ToLower(raw)
}
