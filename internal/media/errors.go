package media

import "errors"

var (
	// ErrAssetTooLarge indicates the payload exceeds the configured max asset size.
	ErrAssetTooLarge = errors.New("media asset too large")
	// ErrPathTraversal indicates a storage key attempted directory traversal.
	ErrPathTraversal = errors.New("path traversal is forbidden")
	// ErrEmptyPayload indicates an upstream returned zero bytes.
	ErrEmptyPayload = errors.New("media payload is empty")
)
