package channel

import (
	"fmt"
	"strings"
)

// ReadString returns the first non-empty value found under any of keys,
// formatting non-string values with %v.
func ReadString(raw map[string]any, keys ...string) string {
	if raw == nil {
		return ""
	}
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		var s string
		switch v := value.(type) {
		case string:
			s = v
		default:
			s = fmt.Sprintf("%v", v)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
