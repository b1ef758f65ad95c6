package discord

import (
	"fmt"
	"strings"

	"github.com/memohai/ytbot/internal/channel"
)

// Type is the registered channel type for Discord.
const Type channel.ChannelType = "discord"

// Config holds the credentials for one Discord bot.
type Config struct {
	BotToken string
}

func parseConfig(raw map[string]any) (Config, error) {
	token := channel.ReadString(raw, "botToken", "bot_token")
	if token == "" {
		return Config{}, fmt.Errorf("discord botToken is required")
	}
	return Config{BotToken: strings.TrimPrefix(token, "Bot ")}, nil
}

// normalizeTarget strips mention and channel wrappers, leaving the snowflake id.
func normalizeTarget(raw string) string {
	value := strings.TrimSpace(raw)
	for _, prefix := range []string{"<#", "<@!", "<@"} {
		if strings.HasPrefix(value, prefix) && strings.HasSuffix(value, ">") {
			return strings.TrimSuffix(strings.TrimPrefix(value, prefix), ">")
		}
	}
	return strings.TrimPrefix(value, "discord:")
}
