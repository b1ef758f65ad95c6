package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/memohai/ytbot/internal/channel"
	"github.com/memohai/ytbot/internal/channel/adapters/common"
)

const (
	inboundDedupTTL         = time.Minute
	processingBusyEmoji     = "⏳"
	discordMaxMessageLength = 2000
	discordMaxFiles         = 10

	gatewayIntents = discordgo.IntentGuildMessages | discordgo.IntentDirectMessages | discordgo.IntentMessageContent
)

// DiscordAdapter connects bots through the Discord gateway. One session per
// token serves both the receiver and sends.
type DiscordAdapter struct {
	logger   *slog.Logger
	mu       sync.Mutex
	sessions map[string]*discordgo.Session
	removers map[string]func()
	seen     *dedupWindow
}

func NewDiscordAdapter(log *slog.Logger) *DiscordAdapter {
	if log == nil {
		log = slog.Default()
	}
	return &DiscordAdapter{
		logger:   log.With(slog.String("adapter", "discord")),
		sessions: make(map[string]*discordgo.Session),
		removers: make(map[string]func()),
		seen:     newDedupWindow(inboundDedupTTL),
	}
}

func (a *DiscordAdapter) Type() channel.ChannelType {
	return Type
}

func (a *DiscordAdapter) Descriptor() channel.Descriptor {
	return channel.Descriptor{
		Type:        Type,
		DisplayName: "Discord",
		Capabilities: channel.ChannelCapabilities{
			Text:        true,
			Markdown:    true,
			Reply:       true,
			Attachments: true,
			Media:       true,
			Threads:     true,
		},
		OutboundPolicy: channel.OutboundPolicy{
			TextChunkLimit: discordMaxMessageLength,
			CaptionLimit:   discordMaxMessageLength,
			ChunkerMode:    channel.ChunkerModeMarkdown,
			MediaOrder:     channel.OutboundOrderMediaFirst,
		},
	}
}

func (a *DiscordAdapter) NormalizeTarget(raw string) string {
	return normalizeTarget(raw)
}

func (a *DiscordAdapter) session(cfg channel.ChannelConfig) (*discordgo.Session, error) {
	dcCfg, err := parseConfig(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sessions[dcCfg.BotToken]; ok {
		return s, nil
	}
	s, err := discordgo.New("Bot " + dcCfg.BotToken)
	if err != nil {
		a.logger.Error("create session failed", slog.String("config_id", cfg.ID), slog.Any("error", err))
		return nil, err
	}
	s.Identify.Intents = gatewayIntents
	a.sessions[dcCfg.BotToken] = s
	return s, nil
}

// Connect opens the gateway and forwards user messages to handler.
// Gateway resumes can replay a message, so ids are deduplicated.
func (a *DiscordAdapter) Connect(ctx context.Context, cfg channel.ChannelConfig, handler channel.InboundHandler) (channel.Connection, error) {
	dcCfg, err := parseConfig(cfg.Credentials)
	if err != nil {
		return nil, err
	}
	session, err := a.session(cfg)
	if err != nil {
		return nil, err
	}

	remove := session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if ctx.Err() != nil || m == nil || m.Message == nil {
			return
		}
		if !a.seen.firstSeen(dcCfg.BotToken + ":" + m.ID) {
			return
		}
		msg, ok := toInbound(cfg, m.Message)
		if !ok {
			return
		}
		a.logger.Debug("inbound received",
			slog.String("config_id", cfg.ID),
			slog.String("channel_id", m.ChannelID),
			slog.String("user_id", msg.Sender.SubjectID),
			slog.String("text", common.SummarizeText(msg.Message.Text)),
		)
		if err := handler(ctx, cfg, msg); err != nil {
			a.logger.Error("handle inbound failed", slog.String("config_id", cfg.ID), slog.Any("error", err))
		}
	})
	a.replaceRemover(dcCfg.BotToken, remove)

	if err := session.Open(); err != nil {
		a.releaseSession(dcCfg.BotToken)
		return nil, fmt.Errorf("discord open connection: %w", err)
	}
	a.logger.Info("gateway connected", slog.String("config_id", cfg.ID))

	stop := func(context.Context) error {
		a.logger.Info("gateway closed", slog.String("config_id", cfg.ID))
		a.releaseSession(dcCfg.BotToken)
		return session.Close()
	}
	return channel.NewConnection(cfg, stop), nil
}

// toInbound maps a gateway message. Bot authors and empty messages are
// dropped. Each Discord channel or thread is its own conversation.
func toInbound(cfg channel.ChannelConfig, m *discordgo.Message) (channel.InboundMessage, bool) {
	if m.Author == nil || m.Author.Bot {
		return channel.InboundMessage{}, false
	}
	text := strings.TrimSpace(m.Content)
	if text == "" {
		return channel.InboundMessage{}, false
	}
	chatType := "direct"
	if m.GuildID != "" {
		chatType = "guild"
	}
	msg := channel.InboundMessage{
		Channel: Type,
		Message: channel.Message{
			ID:     m.ID,
			Format: channel.MessageFormatPlain,
			Text:   text,
		},
		BotID:       cfg.BotID,
		ReplyTarget: m.ChannelID,
		Sender: channel.Identity{
			SubjectID:   m.Author.ID,
			DisplayName: m.Author.Username,
			Attributes: map[string]string{
				"user_id":  m.Author.ID,
				"username": m.Author.Username,
			},
		},
		Conversation: channel.Conversation{
			ID:   m.ChannelID,
			Type: chatType,
		},
		ReceivedAt: m.Timestamp.UTC(),
		Source:     Type.String(),
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}
	if m.GuildID != "" {
		msg.Metadata = map[string]any{"guild_id": m.GuildID}
	}
	if ref := m.MessageReference; ref != nil && ref.MessageID != "" {
		msg.Message.Reply = &channel.ReplyRef{Target: m.ChannelID, MessageID: ref.MessageID}
	}
	return msg, true
}

func (a *DiscordAdapter) replaceRemover(token string, remove func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if old := a.removers[token]; old != nil {
		old()
	}
	a.removers[token] = remove
}

func (a *DiscordAdapter) releaseSession(token string) {
	a.mu.Lock()
	remove := a.removers[token]
	delete(a.removers, token)
	delete(a.sessions, token)
	a.mu.Unlock()
	if remove != nil {
		remove()
	}
}

// dedupWindow remembers keys for ttl.
type dedupWindow struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
	now  func() time.Time
}

func newDedupWindow(ttl time.Duration) *dedupWindow {
	return &dedupWindow{ttl: ttl, seen: make(map[string]time.Time), now: time.Now}
}

// firstSeen records key and reports whether it was new within the window.
func (d *dedupWindow) firstSeen(key string) bool {
	if strings.TrimSpace(key) == "" {
		return true
	}
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, at := range d.seen {
		if now.Sub(at) > d.ttl {
			delete(d.seen, k)
		}
	}
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = now
	return true
}
