package telegram

import (
	"fmt"
	"strings"

	"github.com/memohai/ytbot/internal/channel"
)

// Type is the registered channel type for Telegram.
const Type channel.ChannelType = "telegram"

// Config holds the credentials for one Telegram bot.
type Config struct {
	BotToken string
}

func parseConfig(raw map[string]any) (Config, error) {
	token := channel.ReadString(raw, "botToken", "bot_token")
	if token == "" {
		return Config{}, fmt.Errorf("telegram botToken is required")
	}
	return Config{BotToken: token}, nil
}

// normalizeTarget accepts a numeric chat id, an @username, or a t.me link.
func normalizeTarget(raw string) string {
	value := strings.TrimSpace(raw)
	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		if strings.HasPrefix(value, prefix) {
			value = "@" + strings.TrimPrefix(value, prefix)
			break
		}
	}
	if strings.HasPrefix(value, "@") {
		return "@" + strings.Trim(strings.TrimPrefix(value, "@"), "/ ")
	}
	return value
}
