package channel

import (
	"strings"
	"testing"
)

func TestChunkText(t *testing.T) {
	t.Parallel()

	text := "line one\nline two\nline three"
	chunks := ChunkText(text, 17)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "line one\nline two" || chunks[1] != "line three" {
		t.Fatalf("unexpected chunks: %q", chunks)
	}
	long := strings.Repeat("é", 25)
	chunks = ChunkText(long, 10)
	if len(chunks) != 3 || runeLen(chunks[2]) != 5 {
		t.Fatalf("unexpected rune split: %q", chunks)
	}
	if ChunkText("   ", 10) != nil {
		t.Fatalf("blank text should produce no chunks")
	}
}

func TestChunkMarkdownText(t *testing.T) {
	t.Parallel()

	text := "para one\n\npara two\n\npara three"
	chunks := ChunkMarkdownText(text, 20)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %q", chunks)
	}
	if chunks[0] != "para one\n\npara two" {
		t.Fatalf("unexpected first chunk: %q", chunks[0])
	}
}

func TestBuildOutboundMessagesKeepsCaptionWithMedia(t *testing.T) {
	t.Parallel()

	policy := NormalizeOutboundPolicy(OutboundPolicy{CaptionLimit: 100})
	msg := OutboundMessage{Target: "chat", Message: Message{
		Text:        "✅ done",
		Attachments: []Attachment{{Type: AttachmentVideo, Path: "/tmp/v.mp4"}},
	}}
	out, err := buildOutboundMessages(msg, policy)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected one combined message, got %d", len(out))
	}
	if out[0].Message.Text != "✅ done" || len(out[0].Message.Attachments) != 1 {
		t.Fatalf("unexpected message: %+v", out[0].Message)
	}
	if out[0].Message.Format != MessageFormatPlain {
		t.Fatalf("expected plain format default, got %q", out[0].Message.Format)
	}
}

func TestBuildOutboundMessagesSplitsLongCaption(t *testing.T) {
	t.Parallel()

	policy := NormalizeOutboundPolicy(OutboundPolicy{CaptionLimit: 10, TextChunkLimit: 50})
	msg := OutboundMessage{Target: "chat", Message: Message{
		Text:        strings.Repeat("a", 30),
		Attachments: []Attachment{{Type: AttachmentImage, Path: "/tmp/1.jpg"}},
	}}
	out, err := buildOutboundMessages(msg, policy)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected media and text messages, got %d", len(out))
	}
	if len(out[0].Message.Attachments) != 1 || out[0].Message.Text != "" {
		t.Fatalf("expected media first: %+v", out[0].Message)
	}
	if len(out[1].Message.Attachments) != 0 || out[1].Message.Text == "" {
		t.Fatalf("expected text second: %+v", out[1].Message)
	}

	policy.MediaOrder = OutboundOrderTextFirst
	out, err = buildOutboundMessages(msg, policy)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if out[0].Message.Text == "" {
		t.Fatalf("expected text first with text_first order")
	}
}

func TestBuildOutboundMessagesRejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := buildOutboundMessages(OutboundMessage{Target: "x"}, NormalizeOutboundPolicy(OutboundPolicy{})); err == nil {
		t.Fatalf("expected error for empty message")
	}
}

type capsAdapter struct {
	caps ChannelCapabilities
}

func (a *capsAdapter) Type() ChannelType { return ChannelType("caps") }

func (a *capsAdapter) Descriptor() Descriptor {
	return Descriptor{Type: ChannelType("caps"), Capabilities: a.caps}
}

func TestValidateMessageCapabilities(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.MustRegister(&capsAdapter{caps: ChannelCapabilities{Text: true, Attachments: true}})
	ct := ChannelType("caps")

	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{name: "plain text", msg: Message{Format: MessageFormatPlain, Text: "hi"}},
		{name: "markdown falls back to text", msg: Message{Format: MessageFormatMarkdown, Text: "**hi**"}},
		{name: "image attachment", msg: Message{Attachments: []Attachment{{Type: AttachmentImage, Path: "/a.jpg"}}}},
		{name: "video needs media", msg: Message{Attachments: []Attachment{{Type: AttachmentVideo, Path: "/a.mp4"}}}, wantErr: true},
		{name: "threads unsupported", msg: Message{Text: "hi", Thread: &ThreadRef{ID: "t"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateMessageCapabilities(registry, ct, tt.msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNormalizeAttachmentRefs(t *testing.T) {
	t.Parallel()

	out, err := normalizeAttachmentRefs([]Attachment{{Type: AttachmentFile, PlatformKey: " key "}}, ChannelType("telegram"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if out[0].PlatformKey != "key" || out[0].SourcePlatform != "telegram" {
		t.Fatalf("unexpected attachment: %+v", out[0])
	}
	if _, err := normalizeAttachmentRefs([]Attachment{{Type: AttachmentFile}}, ChannelType("telegram")); err == nil {
		t.Fatalf("expected error for attachment without reference")
	}
}
