package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/memohai/ytbot/internal/channel"
)

type processingStatusSession interface {
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	MessageReactionAdd(channelID, messageID, emoji string, options ...discordgo.RequestOption) error
}

// ProcessingStarted shows typing and marks the command message with ⏳.
func (a *DiscordAdapter) ProcessingStarted(_ context.Context, cfg channel.ChannelConfig, _ channel.InboundMessage, info channel.ProcessingStatusInfo) (channel.ProcessingStatusHandle, error) {
	chatID := strings.TrimSpace(info.ReplyTarget)
	if chatID == "" {
		return channel.ProcessingStatusHandle{}, nil
	}
	session, err := a.session(cfg)
	if err != nil {
		return channel.ProcessingStatusHandle{}, err
	}
	return startProcessingStatus(session, chatID, strings.TrimSpace(info.SourceMessageID))
}

// startProcessingStatus returns a handle carrying the reaction to remove
// later. A typing failure is reported only when no reaction was placed.
func startProcessingStatus(session processingStatusSession, chatID, messageID string) (channel.ProcessingStatusHandle, error) {
	typingErr := session.ChannelTyping(chatID)
	if messageID == "" {
		return channel.ProcessingStatusHandle{}, typingErr
	}
	if err := session.MessageReactionAdd(chatID, messageID, processingBusyEmoji); err != nil {
		return channel.ProcessingStatusHandle{}, err
	}
	return channel.ProcessingStatusHandle{Token: processingBusyEmoji}, nil
}

// ProcessingCompleted removes the ⏳ reaction placed by ProcessingStarted.
func (a *DiscordAdapter) ProcessingCompleted(_ context.Context, cfg channel.ChannelConfig, _ channel.InboundMessage, info channel.ProcessingStatusInfo, handle channel.ProcessingStatusHandle) error {
	emoji := strings.TrimSpace(handle.Token)
	chatID := strings.TrimSpace(info.ReplyTarget)
	messageID := strings.TrimSpace(info.SourceMessageID)
	if emoji == "" || chatID == "" || messageID == "" {
		return nil
	}
	session, err := a.session(cfg)
	if err != nil {
		return err
	}
	return session.MessageReactionRemove(chatID, messageID, emoji, "@me")
}

func (a *DiscordAdapter) ProcessingFailed(ctx context.Context, cfg channel.ChannelConfig, msg channel.InboundMessage, info channel.ProcessingStatusInfo, handle channel.ProcessingStatusHandle, _ error) error {
	return a.ProcessingCompleted(ctx, cfg, msg, info, handle)
}
