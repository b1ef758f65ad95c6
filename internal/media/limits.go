package media

import (
	"fmt"
	"io"
)

const (
	// MaxAssetBytes is the largest video accepted into scratch storage.
	MaxAssetBytes int64 = 200 * 1024 * 1024
	// MaxThumbnailBytes caps a single thumbnail fetch.
	MaxThumbnailBytes int64 = 10 * 1024 * 1024
)

// ReadAllWithLimit reads from reader and rejects payloads larger than maxBytes.
func ReadAllWithLimit(reader io.Reader, maxBytes int64) ([]byte, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be greater than 0")
	}
	limited := &io.LimitedReader{
		R: reader,
		N: maxBytes + 1,
	}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, maxBytes)
	}
	return data, nil
}

// CopyWithLimit streams src into dst and fails once more than maxBytes
// have been read. Bytes already written are not rolled back.
func CopyWithLimit(dst io.Writer, src io.Reader, maxBytes int64) (int64, error) {
	if src == nil || dst == nil {
		return 0, fmt.Errorf("reader and writer are required")
	}
	if maxBytes <= 0 {
		return 0, fmt.Errorf("max bytes must be greater than 0")
	}
	n, err := io.Copy(dst, &io.LimitedReader{R: src, N: maxBytes + 1})
	if err != nil {
		return n, err
	}
	if n > maxBytes {
		return n, fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, maxBytes)
	}
	return n, nil
}
