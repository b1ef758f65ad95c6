package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memohai/ytbot/internal/channel"
	"github.com/memohai/ytbot/internal/channel/adapters/common"
)

const (
	pollTimeoutSeconds = 30

	telegramMaxMessageLength = 4096
	telegramMaxCaptionLength = 1024
	telegramMaxMediaGroup    = 10
)

// TelegramAdapter receives chat messages by long polling and delivers
// replies through the Bot API. Send clients are cached per token.
type TelegramAdapter struct {
	logger *slog.Logger
	mu     sync.RWMutex
	bots   map[string]*tgbotapi.BotAPI
}

func NewTelegramAdapter(log *slog.Logger) *TelegramAdapter {
	if log == nil {
		log = slog.Default()
	}
	adapter := &TelegramAdapter{
		logger: log.With(slog.String("adapter", "telegram")),
		bots:   make(map[string]*tgbotapi.BotAPI),
	}
	_ = tgbotapi.SetLogger(&slogBotLogger{log: adapter.logger})
	return adapter
}

var getOrCreateBotForTest func(a *TelegramAdapter, token, configID string) (*tgbotapi.BotAPI, error)

func (a *TelegramAdapter) sendClient(cfg channel.ChannelConfig) (*tgbotapi.BotAPI, error) {
	tgCfg, err := parseConfig(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	if getOrCreateBotForTest != nil {
		return getOrCreateBotForTest(a, tgCfg.BotToken, cfg.ID)
	}
	a.mu.RLock()
	bot, ok := a.bots[tgCfg.BotToken]
	a.mu.RUnlock()
	if ok {
		return bot, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if bot, ok := a.bots[tgCfg.BotToken]; ok {
		return bot, nil
	}
	bot, err = tgbotapi.NewBotAPI(tgCfg.BotToken)
	if err != nil {
		a.logger.Error("create bot failed", slog.String("config_id", cfg.ID), slog.Any("error", err))
		return nil, err
	}
	a.bots[tgCfg.BotToken] = bot
	return bot, nil
}

func (a *TelegramAdapter) Type() channel.ChannelType {
	return Type
}

func (a *TelegramAdapter) Descriptor() channel.Descriptor {
	return channel.Descriptor{
		Type:        Type,
		DisplayName: "Telegram",
		Capabilities: channel.ChannelCapabilities{
			Text:        true,
			Markdown:    true,
			Reply:       true,
			Attachments: true,
			Media:       true,
		},
		OutboundPolicy: channel.OutboundPolicy{
			TextChunkLimit: telegramMaxMessageLength,
			CaptionLimit:   telegramMaxCaptionLength,
			ChunkerMode:    channel.ChunkerModeMarkdown,
			MediaOrder:     channel.OutboundOrderMediaFirst,
		},
	}
}

func (a *TelegramAdapter) NormalizeTarget(raw string) string {
	return normalizeTarget(raw)
}

// Connect starts long polling and hands every text message to handler.
func (a *TelegramAdapter) Connect(ctx context.Context, cfg channel.ChannelConfig, handler channel.InboundHandler) (channel.Connection, error) {
	tgCfg, err := parseConfig(cfg.Credentials)
	if err != nil {
		a.logger.Error("decode config failed", slog.String("config_id", cfg.ID), slog.Any("error", err))
		return nil, err
	}
	// StopReceivingUpdates cannot be undone, so polling never shares the send client.
	bot, err := tgbotapi.NewBotAPI(tgCfg.BotToken)
	if err != nil {
		a.logger.Error("create bot failed", slog.String("config_id", cfg.ID), slog.Any("error", err))
		return nil, err
	}
	a.logger.Info("polling started", slog.String("config_id", cfg.ID), slog.String("username", bot.Self.UserName))

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = pollTimeoutSeconds
	updateCfg.AllowedUpdates = []string{"message"}
	updates := bot.GetUpdatesChan(updateCfg)
	connCtx, cancel := context.WithCancel(ctx)

	go a.poll(connCtx, cfg, updates, handler)

	stop := func(_ context.Context) error {
		a.logger.Info("polling stopped", slog.String("config_id", cfg.ID))
		bot.StopReceivingUpdates()
		cancel()
		// The library goroutine exits only after its last long poll is read;
		// leaving it running makes the next getUpdates call conflict.
		for range updates {
		}
		return nil
	}
	return channel.NewConnection(cfg, stop), nil
}

func (a *TelegramAdapter) poll(ctx context.Context, cfg channel.ChannelConfig, updates tgbotapi.UpdatesChannel, handler channel.InboundHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				a.logger.Info("updates channel closed", slog.String("config_id", cfg.ID))
				return
			}
			msg, ok := toInbound(cfg, update.Message)
			if !ok {
				continue
			}
			a.logger.Debug("inbound received",
				slog.String("config_id", cfg.ID),
				slog.String("chat_id", msg.Conversation.ID),
				slog.String("user_id", msg.Sender.SubjectID),
				slog.String("text", common.SummarizeText(msg.Message.Text)),
			)
			// handler only enqueues; calling it inline keeps per-chat order.
			if err := handler(ctx, cfg, msg); err != nil {
				a.logger.Error("handle inbound failed", slog.String("config_id", cfg.ID), slog.Any("error", err))
			}
		}
	}
}

// toInbound maps a Telegram message to the channel model. Messages without
// text or caption are dropped since every command is typed.
func toInbound(cfg channel.ChannelConfig, m *tgbotapi.Message) (channel.InboundMessage, bool) {
	if m == nil || m.Chat == nil {
		return channel.InboundMessage{}, false
	}
	text := strings.TrimSpace(m.Text)
	if text == "" {
		text = strings.TrimSpace(m.Caption)
	}
	if text == "" {
		return channel.InboundMessage{}, false
	}
	chatID := strconv.FormatInt(m.Chat.ID, 10)
	msg := channel.InboundMessage{
		Channel: Type,
		Message: channel.Message{
			ID:     strconv.Itoa(m.MessageID),
			Format: channel.MessageFormatPlain,
			Text:   text,
		},
		BotID:       cfg.BotID,
		ReplyTarget: chatID,
		Sender:      senderIdentity(m),
		Conversation: channel.Conversation{
			ID:   chatID,
			Type: strings.TrimSpace(m.Chat.Type),
			Name: strings.TrimSpace(m.Chat.Title),
		},
		ReceivedAt: time.Unix(int64(m.Date), 0).UTC(),
		Source:     Type.String(),
	}
	if m.ReplyToMessage != nil {
		msg.Message.Reply = &channel.ReplyRef{
			Target:    chatID,
			MessageID: strconv.Itoa(m.ReplyToMessage.MessageID),
		}
	}
	return msg, true
}

// senderIdentity prefers the user; anonymous admins and channel posts
// fall back to the sender chat.
func senderIdentity(m *tgbotapi.Message) channel.Identity {
	attrs := map[string]string{}
	switch {
	case m.From != nil:
		id := strconv.FormatInt(m.From.ID, 10)
		attrs["user_id"] = id
		name := strings.TrimSpace(m.From.UserName)
		if name != "" {
			attrs["username"] = name
		} else {
			name = strings.TrimSpace(m.From.FirstName + " " + m.From.LastName)
		}
		return channel.Identity{SubjectID: id, DisplayName: name, Attributes: attrs}
	case m.SenderChat != nil:
		id := strconv.FormatInt(m.SenderChat.ID, 10)
		attrs["sender_chat_id"] = id
		name := strings.TrimSpace(m.SenderChat.Title)
		if name == "" {
			name = strings.TrimSpace(m.SenderChat.UserName)
		}
		return channel.Identity{SubjectID: id, DisplayName: name, Attributes: attrs}
	default:
		return channel.Identity{Attributes: attrs}
	}
}

// ProcessingStarted shows the typing indicator. Telegram clears it on the
// next message, so completion and failure have nothing to undo.
func (a *TelegramAdapter) ProcessingStarted(ctx context.Context, cfg channel.ChannelConfig, _ channel.InboundMessage, info channel.ProcessingStatusInfo) (channel.ProcessingStatusHandle, error) {
	chat, err := resolveChat(info.ReplyTarget)
	if err != nil || chat.ChannelUsername != "" {
		return channel.ProcessingStatusHandle{}, nil
	}
	bot, err := a.sendClient(cfg)
	if err != nil {
		return channel.ProcessingStatusHandle{}, err
	}
	if _, err := bot.Request(tgbotapi.NewChatAction(chat.ChatID, tgbotapi.ChatTyping)); err != nil {
		a.logger.Warn("send typing action failed", slog.String("config_id", cfg.ID), slog.Any("error", err))
	}
	return channel.ProcessingStatusHandle{}, nil
}

func (a *TelegramAdapter) ProcessingCompleted(context.Context, channel.ChannelConfig, channel.InboundMessage, channel.ProcessingStatusInfo, channel.ProcessingStatusHandle) error {
	return nil
}

func (a *TelegramAdapter) ProcessingFailed(context.Context, channel.ChannelConfig, channel.InboundMessage, channel.ProcessingStatusInfo, channel.ProcessingStatusHandle, error) error {
	return nil
}
