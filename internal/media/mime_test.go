package media

import (
	"os"
	"path/filepath"
	"testing"
)

// Minimal JPEG and MP4 headers are enough for sniffing.
var (
	jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	mp4Header  = []byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0x00, 0x00, 0x00, 0x00, 'm', 'p', '4', '2', 'i', 's', 'o', 'm'}
)

func TestDetectMime(t *testing.T) {
	t.Parallel()

	if got := DetectMime(jpegHeader); got != "image/jpeg" {
		t.Fatalf("jpeg detected as %q", got)
	}
	if got := DetectMime([]byte("plain words")); got != "text/plain" {
		t.Fatalf("text detected as %q", got)
	}
}

func TestDetectFileMime(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "video.bin")
	if err := os.WriteFile(path, mp4Header, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := DetectFileMime(path); got != "video/mp4" {
		t.Fatalf("mp4 detected as %q", got)
	}
	if got := DetectFileMime(filepath.Join(t.TempDir(), "missing")); got != "application/octet-stream" {
		t.Fatalf("missing file detected as %q", got)
	}
}

func TestTypeFromMime(t *testing.T) {
	t.Parallel()

	cases := map[string]MediaType{
		"image/jpeg":                MediaTypeImage,
		"Video/MP4; codecs=avc1":    MediaTypeVideo,
		"audio/mpeg":                MediaTypeAudio,
		"application/octet-stream":  MediaTypeFile,
		"":                          MediaTypeFile,
	}
	for mime, want := range cases {
		if got := TypeFromMime(mime); got != want {
			t.Fatalf("TypeFromMime(%q) = %q, want %q", mime, got, want)
		}
	}
}
