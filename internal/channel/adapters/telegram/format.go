package telegram

import (
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memohai/ytbot/internal/channel"
)

var telegramBoldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// formatTelegramOutput renders text for the Bot API. Markdown bold is
// converted to HTML so titles with underscores or brackets need no escaping.
func formatTelegramOutput(text string, format channel.MessageFormat) (string, string) {
	if format != channel.MessageFormatMarkdown || !strings.Contains(text, "**") {
		return text, ""
	}
	escaped := html.EscapeString(text)
	return telegramBoldPattern.ReplaceAllString(escaped, "<b>$1</b>"), tgbotapi.ModeHTML
}

// slogBotLogger routes the bot library's internal logging through slog.
type slogBotLogger struct {
	log *slog.Logger
}

func (l *slogBotLogger) Println(v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l *slogBotLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
