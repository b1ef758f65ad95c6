package discord

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/memohai/ytbot/internal/channel"
)

type fakeSendSession struct {
	channelID string
	content   string
	reference *discordgo.MessageReference
	files     map[string]string
	types     map[string]string
	err       error
}

func (s *fakeSendSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.channelID = channelID
	s.content = data.Content
	s.reference = data.Reference
	s.files = map[string]string{}
	s.types = map[string]string{}
	for _, f := range data.Files {
		body, _ := io.ReadAll(f.Reader)
		s.files[f.Name] = string(body)
		s.types[f.Name] = f.ContentType
	}
	if s.err != nil {
		return nil, s.err
	}
	return &discordgo.Message{ID: "m1", ChannelID: channelID}, nil
}

func TestSendDiscordMessageUploadsLocalFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "video_thread.mp4")
	if err := os.WriteFile(path, []byte("video-bytes"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	session := &fakeSendSession{}
	err := sendDiscordMessage(session, "chan-1", channel.Message{
		Text:        "✅ Successfully downloaded: **Song**",
		Attachments: []channel.Attachment{{Type: channel.AttachmentVideo, Path: path, Mime: "video/mp4"}},
		Reply:       &channel.ReplyRef{MessageID: "src-1"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if session.channelID != "chan-1" || session.content != "✅ Successfully downloaded: **Song**" {
		t.Fatalf("unexpected message: %+v", session)
	}
	if session.files["video_thread.mp4"] != "video-bytes" {
		t.Fatalf("unexpected files: %+v", session.files)
	}
	if session.types["video_thread.mp4"] != "video/mp4" {
		t.Fatalf("unexpected content type: %+v", session.types)
	}
	if session.reference == nil || session.reference.MessageID != "src-1" {
		t.Fatalf("expected reply reference, got %+v", session.reference)
	}
}

func TestSendDiscordMessageLinksRemoteAttachments(t *testing.T) {
	t.Parallel()

	session := &fakeSendSession{}
	err := sendDiscordMessage(session, "chan-1", channel.Message{
		Text:        "look",
		Attachments: []channel.Attachment{{Type: channel.AttachmentImage, URL: "https://img/1.jpg"}},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if session.content != "look\nhttps://img/1.jpg" || len(session.files) != 0 {
		t.Fatalf("unexpected message: %+v", session)
	}
}

func TestSendDiscordMessageErrors(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "missing.mp4")
	err := sendDiscordMessage(&fakeSendSession{}, "chan-1", channel.Message{
		Attachments: []channel.Attachment{{Type: channel.AttachmentVideo, Path: missing}},
	})
	if err == nil || !strings.Contains(err.Error(), "open attachment") {
		t.Fatalf("expected open error, got %v", err)
	}

	apiErr := errors.New("413 request entity too large")
	err = sendDiscordMessage(&fakeSendSession{err: apiErr}, "chan-1", channel.Message{Text: "hi"})
	if !errors.Is(err, apiErr) {
		t.Fatalf("expected api error, got %v", err)
	}

	tooMany := make([]channel.Attachment, discordMaxFiles+1)
	if err := sendDiscordMessage(&fakeSendSession{}, "chan-1", channel.Message{Attachments: tooMany}); err == nil {
		t.Fatal("expected file count error")
	}
}

func TestTruncateDiscordText(t *testing.T) {
	t.Parallel()

	if got := truncateDiscordText("short"); got != "short" {
		t.Fatalf("unexpected: %q", got)
	}
	long := strings.Repeat("é", discordMaxMessageLength+5)
	got := truncateDiscordText(long)
	if len([]rune(got)) != discordMaxMessageLength || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation length %d", len([]rune(got)))
	}
}

func TestDiscordConfigAndTarget(t *testing.T) {
	t.Parallel()

	cfg, err := parseConfig(map[string]any{"botToken": "Bot abc"})
	if err != nil || cfg.BotToken != "abc" {
		t.Fatalf("parseConfig = (%+v, %v)", cfg, err)
	}
	if _, err := parseConfig(map[string]any{}); err == nil {
		t.Fatal("expected missing token error")
	}
	for raw, want := range map[string]string{
		"<#123>":      "123",
		"<@!456>":     "456",
		"discord:789": "789",
		" 42 ":        "42",
	} {
		if got := normalizeTarget(raw); got != want {
			t.Fatalf("normalizeTarget(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestDiscordDescriptor(t *testing.T) {
	t.Parallel()

	desc := NewDiscordAdapter(nil).Descriptor()
	if desc.Type != Type || !desc.Capabilities.Attachments {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
	if desc.OutboundPolicy.CaptionLimit != discordMaxMessageLength {
		t.Fatalf("unexpected caption limit: %d", desc.OutboundPolicy.CaptionLimit)
	}
}
