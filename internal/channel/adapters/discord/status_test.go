package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/memohai/ytbot/internal/channel"
)

type fakeStatusSession struct {
	typingErr   error
	reactionErr error
	reactions   []string
}

func (s *fakeStatusSession) ChannelTyping(string, ...discordgo.RequestOption) error {
	return s.typingErr
}

func (s *fakeStatusSession) MessageReactionAdd(_, messageID, emoji string, _ ...discordgo.RequestOption) error {
	if s.reactionErr != nil {
		return s.reactionErr
	}
	s.reactions = append(s.reactions, messageID+":"+emoji)
	return nil
}

func TestStartProcessingStatus(t *testing.T) {
	t.Parallel()

	typingErr := errors.New("typing failed")
	reactionErr := errors.New("reaction failed")
	cases := []struct {
		name      string
		session   *fakeStatusSession
		messageID string
		wantToken string
		wantErr   error
	}{
		{name: "reaction placed", session: &fakeStatusSession{}, messageID: "m1", wantToken: processingBusyEmoji},
		{name: "typing error hidden by reaction", session: &fakeStatusSession{typingErr: typingErr}, messageID: "m1", wantToken: processingBusyEmoji},
		{name: "typing error without message", session: &fakeStatusSession{typingErr: typingErr}, wantErr: typingErr},
		{name: "reaction error", session: &fakeStatusSession{reactionErr: reactionErr}, messageID: "m1", wantErr: reactionErr},
		{name: "typing only", session: &fakeStatusSession{}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			handle, err := startProcessingStatus(tc.session, "chat-1", tc.messageID)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if handle.Token != tc.wantToken {
				t.Fatalf("token = %q, want %q", handle.Token, tc.wantToken)
			}
		})
	}
}

func TestProcessingCompletedWithoutHandleIsNoop(t *testing.T) {
	t.Parallel()

	adapter := NewDiscordAdapter(nil)
	err := adapter.ProcessingCompleted(context.Background(), channel.ChannelConfig{}, channel.InboundMessage{},
		channel.ProcessingStatusInfo{ReplyTarget: "c", SourceMessageID: "m"}, channel.ProcessingStatusHandle{})
	if err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	handle, err := adapter.ProcessingStarted(context.Background(), channel.ChannelConfig{}, channel.InboundMessage{}, channel.ProcessingStatusInfo{})
	if err != nil || handle.Token != "" {
		t.Fatalf("expected empty result without target, got %+v %v", handle, err)
	}
}
