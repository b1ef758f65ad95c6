package discord

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/memohai/ytbot/internal/channel"
	"github.com/memohai/ytbot/internal/media"
)

type messageSendSession interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func (a *DiscordAdapter) Send(ctx context.Context, cfg channel.ChannelConfig, msg channel.OutboundMessage) error {
	channelID := normalizeTarget(msg.Target)
	if channelID == "" {
		return fmt.Errorf("discord target is required")
	}
	if msg.Message.IsEmpty() {
		return fmt.Errorf("message is required")
	}
	session, err := a.session(cfg)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return sendDiscordMessage(session, channelID, msg.Message)
}

// sendDiscordMessage posts text and files in a single API call. Local files
// are opened here and closed once the request completes.
func sendDiscordMessage(session messageSendSession, channelID string, message channel.Message) error {
	if len(message.Attachments) > discordMaxFiles {
		return fmt.Errorf("discord accepts at most %d files per message", discordMaxFiles)
	}
	data := &discordgo.MessageSend{
		Content: truncateDiscordText(strings.TrimSpace(message.Text)),
	}
	if message.Reply != nil && strings.TrimSpace(message.Reply.MessageID) != "" {
		data.Reference = &discordgo.MessageReference{
			ChannelID: channelID,
			MessageID: strings.TrimSpace(message.Reply.MessageID),
		}
	}
	closers := make([]io.Closer, 0, len(message.Attachments))
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	embedURLs := make([]string, 0)
	for _, att := range message.Attachments {
		path := strings.TrimSpace(att.Path)
		if path == "" {
			// Remote attachments are linked; Discord unfurls the preview.
			if url := strings.TrimSpace(att.URL); url != "" {
				embedURLs = append(embedURLs, url)
				continue
			}
			return fmt.Errorf("discord attachment requires a local path or url")
		}
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open attachment: %w", err)
		}
		closers = append(closers, file)
		name := strings.TrimSpace(att.Name)
		if name == "" {
			name = filepath.Base(path)
		}
		mime := strings.TrimSpace(att.Mime)
		if mime == "" {
			mime = media.DetectFileMime(path)
		}
		data.Files = append(data.Files, &discordgo.File{
			Name:        name,
			ContentType: mime,
			Reader:      file,
		})
	}
	if len(embedURLs) > 0 {
		data.Content = truncateDiscordText(strings.TrimSpace(data.Content + "\n" + strings.Join(embedURLs, "\n")))
	}
	_, err := session.ChannelMessageSendComplex(channelID, data)
	return err
}

// truncateDiscordText cuts text to the message limit on a rune boundary.
func truncateDiscordText(text string) string {
	runes := []rune(text)
	if len(runes) > discordMaxMessageLength {
		return string(runes[:discordMaxMessageLength-3]) + "..."
	}
	return text
}

