package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memohai/ytbot/internal/channel"
)

var errInvalidTarget = errors.New("telegram target must be @username or chat_id")

// chatRef addresses either a numeric chat or a public @channel.
type chatRef struct {
	ChatID          int64
	ChannelUsername string
}

func resolveChat(target string) (chatRef, error) {
	target = strings.TrimSpace(target)
	if strings.HasPrefix(target, "@") && len(target) > 1 {
		return chatRef{ChannelUsername: target}, nil
	}
	id, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return chatRef{}, errInvalidTarget
	}
	return chatRef{ChatID: id}, nil
}

func (c chatRef) base(replyTo int) tgbotapi.BaseChat {
	return tgbotapi.BaseChat{
		ChatID:           c.ChatID,
		ChannelUsername:  c.ChannelUsername,
		ReplyToMessageID: replyTo,
	}
}

// Send delivers text, a photo/video album, or individual files. The text
// rides as the caption of the first attachment when its rendered form fits
// the caption limit; otherwise it follows the media as its own message.
func (a *TelegramAdapter) Send(ctx context.Context, cfg channel.ChannelConfig, msg channel.OutboundMessage) error {
	if msg.Message.IsEmpty() {
		return fmt.Errorf("message is required")
	}
	chat, err := resolveChat(msg.Target)
	if err != nil {
		return err
	}
	bot, err := a.sendClient(cfg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text, parseMode := formatTelegramOutput(strings.TrimSpace(msg.Message.Text), msg.Message.Format)
	replyTo := parseReplyToMessageID(msg.Message.Reply)
	attachments := msg.Message.Attachments

	if len(attachments) == 0 {
		return sendText(bot, chat, text, parseMode, replyTo)
	}
	caption, trailing := text, ""
	if utf8.RuneCountInString(text) > telegramMaxCaptionLength {
		caption, trailing = "", text
	}
	if err := a.sendMedia(bot, cfg, chat, attachments, caption, parseMode, replyTo); err != nil {
		return err
	}
	if trailing != "" {
		return sendText(bot, chat, trailing, parseMode, 0)
	}
	return nil
}

func (a *TelegramAdapter) sendMedia(bot *tgbotapi.BotAPI, cfg channel.ChannelConfig, chat chatRef, attachments []channel.Attachment, caption, parseMode string, replyTo int) error {
	if isTelegramMediaGroup(attachments) {
		if err := sendMediaGroup(bot, chat, attachments, caption, parseMode, replyTo); err != nil {
			a.logger.Error("send media group failed", slog.String("config_id", cfg.ID), slog.Int("items", len(attachments)), slog.Any("error", err))
			return err
		}
		return nil
	}
	for i, att := range attachments {
		if i > 0 {
			caption, replyTo = "", 0
		}
		if err := sendAttachment(bot, chat, att, caption, parseMode, replyTo); err != nil {
			a.logger.Error("send attachment failed", slog.String("config_id", cfg.ID), slog.String("type", string(att.Type)), slog.Any("error", err))
			return err
		}
	}
	return nil
}

func sendText(bot *tgbotapi.BotAPI, chat chatRef, text, parseMode string, replyTo int) error {
	_, err := bot.Send(tgbotapi.MessageConfig{
		BaseChat:  chat.base(replyTo),
		Text:      fitText(text, telegramMaxMessageLength),
		ParseMode: parseMode,
	})
	return err
}

// isTelegramMediaGroup reports whether attachments can travel as one album.
func isTelegramMediaGroup(attachments []channel.Attachment) bool {
	if len(attachments) < 2 || len(attachments) > telegramMaxMediaGroup {
		return false
	}
	for _, att := range attachments {
		if att.Type != channel.AttachmentImage && att.Type != channel.AttachmentVideo {
			return false
		}
	}
	return true
}

func sendMediaGroup(bot *tgbotapi.BotAPI, chat chatRef, attachments []channel.Attachment, caption, parseMode string, replyTo int) error {
	items := make([]interface{}, 0, len(attachments))
	for i, att := range attachments {
		file, err := telegramFileData(att)
		if err != nil {
			return err
		}
		var media tgbotapi.BaseInputMedia
		if att.Type == channel.AttachmentVideo {
			media = tgbotapi.NewInputMediaVideo(file).BaseInputMedia
		} else {
			media = tgbotapi.NewInputMediaPhoto(file).BaseInputMedia
		}
		if i == 0 && caption != "" {
			media.Caption = fitText(caption, telegramMaxCaptionLength)
			media.ParseMode = parseMode
		}
		if att.Type == channel.AttachmentVideo {
			items = append(items, tgbotapi.InputMediaVideo{BaseInputMedia: media})
		} else {
			items = append(items, tgbotapi.InputMediaPhoto{BaseInputMedia: media})
		}
	}
	_, err := bot.SendMediaGroup(tgbotapi.MediaGroupConfig{
		ChatID:           chat.ChatID,
		ChannelUsername:  chat.ChannelUsername,
		Media:            items,
		ReplyToMessageID: replyTo,
	})
	return err
}

// telegramFileData picks the upload source for an attachment: a local file,
// a Telegram file id, or a remote URL.
func telegramFileData(att channel.Attachment) (tgbotapi.RequestFileData, error) {
	key := strings.TrimSpace(att.PlatformKey)
	source := strings.TrimSpace(att.SourcePlatform)
	switch {
	case strings.TrimSpace(att.Path) != "":
		return tgbotapi.FilePath(strings.TrimSpace(att.Path)), nil
	case key != "" && (source == "" || strings.EqualFold(source, Type.String())):
		return tgbotapi.FileID(key), nil
	case strings.TrimSpace(att.URL) != "":
		return tgbotapi.FileURL(strings.TrimSpace(att.URL)), nil
	default:
		return nil, fmt.Errorf("attachment reference is required")
	}
}

func sendAttachment(bot *tgbotapi.BotAPI, chat chatRef, att channel.Attachment, caption, parseMode string, replyTo int) error {
	payload, err := buildAttachment(chat, att, caption, parseMode, replyTo)
	if err != nil {
		return err
	}
	_, err = bot.Send(payload)
	return err
}

func buildAttachment(chat chatRef, att channel.Attachment, caption, parseMode string, replyTo int) (tgbotapi.Chattable, error) {
	file, err := telegramFileData(att)
	if err != nil {
		return nil, err
	}
	if caption == "" {
		caption = strings.TrimSpace(att.Caption)
	}
	if caption == "" {
		parseMode = ""
	}
	caption = fitText(caption, telegramMaxCaptionLength)
	base := tgbotapi.BaseFile{BaseChat: chat.base(replyTo), File: file}

	switch att.Type {
	case channel.AttachmentImage:
		return tgbotapi.PhotoConfig{BaseFile: base, Caption: caption, ParseMode: parseMode}, nil
	case channel.AttachmentVideo:
		return tgbotapi.VideoConfig{BaseFile: base, Caption: caption, ParseMode: parseMode, SupportsStreaming: true}, nil
	case channel.AttachmentAudio:
		return tgbotapi.AudioConfig{BaseFile: base, Caption: caption, ParseMode: parseMode}, nil
	case channel.AttachmentVoice:
		return tgbotapi.VoiceConfig{BaseFile: base, Caption: caption, ParseMode: parseMode}, nil
	case channel.AttachmentGIF:
		return tgbotapi.AnimationConfig{BaseFile: base, Caption: caption, ParseMode: parseMode}, nil
	case channel.AttachmentFile, "":
		return tgbotapi.DocumentConfig{BaseFile: base, Caption: caption, ParseMode: parseMode}, nil
	default:
		return nil, fmt.Errorf("unsupported attachment type: %s", att.Type)
	}
}

func parseReplyToMessageID(reply *channel.ReplyRef) int {
	if reply == nil {
		return 0
	}
	id, err := strconv.Atoi(strings.TrimSpace(reply.MessageID))
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// fitText drops invalid UTF-8 and cuts text to limit runes, marking the cut
// with "...".
func fitText(text string, limit int) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-3]) + "..."
}
