package telegram

import (
	"context"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/memohai/ytbot/internal/channel"
)

func TestToInbound(t *testing.T) {
	t.Parallel()

	cfg := channel.ChannelConfig{ID: "tg", BotID: "ytbot"}
	msg, ok := toInbound(cfg, &tgbotapi.Message{
		MessageID: 15,
		Date:      1700000000,
		Text:      "  /yt lofi  ",
		Chat:      &tgbotapi.Chat{ID: -1001, Type: "supergroup", Title: "Music"},
		From:      &tgbotapi.User{ID: 7, UserName: "alice"},
		ReplyToMessage: &tgbotapi.Message{
			MessageID: 14,
		},
	})
	if !ok {
		t.Fatal("expected message to map")
	}
	if msg.Message.Text != "/yt lofi" || msg.Message.ID != "15" {
		t.Fatalf("unexpected message: %+v", msg.Message)
	}
	if msg.ReplyTarget != "-1001" || msg.Conversation.ID != "-1001" || msg.Conversation.Type != "supergroup" {
		t.Fatalf("unexpected routing: %+v", msg)
	}
	if msg.BotID != "ytbot" || msg.Channel != Type {
		t.Fatalf("unexpected bot fields: %+v", msg)
	}
	if msg.Message.Reply == nil || msg.Message.Reply.MessageID != "14" {
		t.Fatalf("expected reply ref, got %+v", msg.Message.Reply)
	}
	if msg.ThreadKey() != "telegram:ytbot:-1001" {
		t.Fatalf("unexpected thread key: %s", msg.ThreadKey())
	}
}

func TestToInboundUsesCaptionAndSkipsEmpty(t *testing.T) {
	t.Parallel()

	cfg := channel.ChannelConfig{ID: "tg"}
	msg, ok := toInbound(cfg, &tgbotapi.Message{Caption: "3", Chat: &tgbotapi.Chat{ID: 1}})
	if !ok || msg.Message.Text != "3" {
		t.Fatalf("expected caption text, got %+v %v", msg.Message, ok)
	}
	if _, ok := toInbound(cfg, &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}); ok {
		t.Fatal("message without text should be dropped")
	}
	if _, ok := toInbound(cfg, nil); ok {
		t.Fatal("nil message should be dropped")
	}
	if _, ok := toInbound(cfg, &tgbotapi.Message{Text: "hi"}); ok {
		t.Fatal("message without chat should be dropped")
	}
}

func TestSenderIdentity(t *testing.T) {
	t.Parallel()

	id := senderIdentity(&tgbotapi.Message{From: &tgbotapi.User{ID: 9, FirstName: "Bob", LastName: "Ray"}})
	if id.SubjectID != "9" || id.DisplayName != "Bob Ray" || id.Attributes["user_id"] != "9" {
		t.Fatalf("unexpected user identity: %+v", id)
	}
	id = senderIdentity(&tgbotapi.Message{SenderChat: &tgbotapi.Chat{ID: -100, UserName: "news"}})
	if id.SubjectID != "-100" || id.DisplayName != "news" {
		t.Fatalf("unexpected sender chat identity: %+v", id)
	}
	if id := senderIdentity(&tgbotapi.Message{}); id.SubjectID != "" {
		t.Fatalf("expected empty identity, got %+v", id)
	}
}

func TestDescriptor(t *testing.T) {
	t.Parallel()

	adapter := NewTelegramAdapter(nil)
	if adapter.Type() != Type {
		t.Fatalf("unexpected type %s", adapter.Type())
	}
	desc := adapter.Descriptor()
	if desc.OutboundPolicy.TextChunkLimit != telegramMaxMessageLength || desc.OutboundPolicy.CaptionLimit != telegramMaxCaptionLength {
		t.Fatalf("unexpected policy: %+v", desc.OutboundPolicy)
	}
	if !desc.Capabilities.Media || !desc.Capabilities.Reply {
		t.Fatalf("unexpected capabilities: %+v", desc.Capabilities)
	}
	var _ channel.ProcessingStatusNotifier = adapter
}

func TestResolveChat(t *testing.T) {
	t.Parallel()

	chat, err := resolveChat(" 42 ")
	if err != nil || chat.ChatID != 42 || chat.ChannelUsername != "" {
		t.Fatalf("resolveChat(42) = %+v, %v", chat, err)
	}
	chat, err = resolveChat("@videos")
	if err != nil || chat.ChannelUsername != "@videos" {
		t.Fatalf("resolveChat(@videos) = %+v, %v", chat, err)
	}
	for _, bad := range []string{"", "@", "abc"} {
		if _, err := resolveChat(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseReplyToMessageID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		ref  *channel.ReplyRef
		want int
	}{
		{nil, 0},
		{&channel.ReplyRef{MessageID: ""}, 0},
		{&channel.ReplyRef{MessageID: "x"}, 0},
		{&channel.ReplyRef{MessageID: " 12 "}, 12},
	}
	for _, tc := range cases {
		if got := parseReplyToMessageID(tc.ref); got != tc.want {
			t.Fatalf("parseReplyToMessageID(%+v) = %d, want %d", tc.ref, got, tc.want)
		}
	}
}

func TestBuildAttachment(t *testing.T) {
	t.Parallel()

	chat := chatRef{ChatID: 5}
	payload, err := buildAttachment(chat, channel.Attachment{Type: channel.AttachmentVideo, Path: "/tmp/v.mp4"}, "✅ done", tgbotapi.ModeHTML, 3)
	if err != nil {
		t.Fatalf("build video: %v", err)
	}
	video, ok := payload.(tgbotapi.VideoConfig)
	if !ok {
		t.Fatalf("expected VideoConfig, got %T", payload)
	}
	if video.ChatID != 5 || video.ReplyToMessageID != 3 || !video.SupportsStreaming || video.ParseMode != tgbotapi.ModeHTML {
		t.Fatalf("unexpected video config: %+v", video)
	}

	payload, err = buildAttachment(chat, channel.Attachment{Type: channel.AttachmentImage, URL: "https://x/t.jpg", Caption: "thumb"}, "", tgbotapi.ModeHTML, 0)
	if err != nil {
		t.Fatalf("build photo: %v", err)
	}
	photo, ok := payload.(tgbotapi.PhotoConfig)
	if !ok || photo.Caption != "thumb" {
		t.Fatalf("expected photo with attachment caption, got %+v", payload)
	}

	payload, err = buildAttachment(chatRef{ChannelUsername: "@c"}, channel.Attachment{Path: "/tmp/a.bin"}, "", tgbotapi.ModeHTML, 0)
	if err != nil {
		t.Fatalf("build document: %v", err)
	}
	doc, ok := payload.(tgbotapi.DocumentConfig)
	if !ok || doc.ChannelUsername != "@c" || doc.ParseMode != "" {
		t.Fatalf("unexpected document config: %+v", payload)
	}

	if _, err := buildAttachment(chat, channel.Attachment{Type: "sticker", Path: "/tmp/s"}, "", "", 0); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestFitText(t *testing.T) {
	t.Parallel()

	if got := fitText("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	long := strings.Repeat("é", 20)
	got := fitText(long, 10)
	if got != strings.Repeat("é", 7)+"..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := fitText("a\xffb", 10); got != "ab" {
		t.Fatalf("expected invalid bytes dropped, got %q", got)
	}
}

func TestProcessingStartedWithoutTarget(t *testing.T) {
	t.Parallel()

	adapter := NewTelegramAdapter(nil)
	handle, err := adapter.ProcessingStarted(context.Background(), channel.ChannelConfig{}, channel.InboundMessage{}, channel.ProcessingStatusInfo{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if handle != (channel.ProcessingStatusHandle{}) {
		t.Fatalf("expected empty handle, got %+v", handle)
	}
	if err := adapter.ProcessingCompleted(context.Background(), channel.ChannelConfig{}, channel.InboundMessage{}, channel.ProcessingStatusInfo{}, handle); err != nil {
		t.Fatalf("completed: %v", err)
	}
	if err := adapter.ProcessingFailed(context.Background(), channel.ChannelConfig{}, channel.InboundMessage{}, channel.ProcessingStatusInfo{}, handle, context.Canceled); err != nil {
		t.Fatalf("failed: %v", err)
	}
}
