package videosearch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNetwork covers every upstream failure: transport errors, non-2xx
// statuses, deadline expiry and undecodable bodies.
var ErrNetwork = errors.New("video api request failed")

const maxErrorDetail = 200

func httpError(op string, status int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > maxErrorDetail {
		detail = detail[:maxErrorDetail] + "..."
	}
	if detail == "" {
		return fmt.Errorf("%w: %s: status %d", ErrNetwork, op, status)
	}
	return fmt.Errorf("%w: %s: status %d: %s", ErrNetwork, op, status, detail)
}
