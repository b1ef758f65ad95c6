package scratchfs

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// ThumbnailName is the scratch name for the i-th (0-based) thumbnail of a thread's listing.
func ThumbnailName(threadID string, i int) string {
	return thumbPrefix + threadToken(threadID) + "_" + strconv.Itoa(i) + ".jpg"
}

// VideoName is the scratch name for a thread's downloaded video.
func VideoName(threadID string) string {
	return videoPrefix + threadToken(threadID) + ".mp4"
}

// threadToken is the readable thread id followed by a hash of the raw id, so
// ids that sanitize alike still get distinct files.
func threadToken(threadID string) string {
	threadID = strings.TrimSpace(threadID)
	h := fnv.New64a()
	_, _ = h.Write([]byte(threadID))
	return sanitize(threadID) + "_" + strconv.FormatUint(h.Sum64(), 16)
}

// sanitize keeps ASCII letters, digits, '-' and '_'; everything else becomes '_'.
func sanitize(id string) string {
	if id == "" {
		return "unknown"
	}
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
