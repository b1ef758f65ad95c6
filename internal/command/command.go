// Package command routes chat messages to named bot commands and passive
// chat listeners.
package command

import (
	"context"
	"errors"
	"strings"

	"github.com/memohai/ytbot/internal/channel"
)

// ErrNoReplier is returned when an event has no way to answer.
var ErrNoReplier = errors.New("event has no replier")

// Spec describes a command for routing and help output. Usage may contain
// the {pn} placeholder, which expands to prefix plus command name.
type Spec struct {
	Name        string
	Aliases     []string
	Category    string
	Description string
	Usage       string
}

// Reply is one message sent back into the thread an event came from.
type Reply struct {
	Text        string
	Format      channel.MessageFormat
	Attachments []channel.Attachment
	ReplyTo     string
}

// Replier delivers replies for one event.
type Replier interface {
	Reply(ctx context.Context, reply Reply) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, reply Reply) error

func (f ReplierFunc) Reply(ctx context.Context, reply Reply) error {
	return f(ctx, reply)
}

// Event is a chat message as seen by commands.
type Event struct {
	ThreadID   string
	MessageID  string
	SenderID   string
	SenderName string
	Body       string
	Prefix     string
	Replier    Replier
}

// Reply answers in the event's thread.
func (e Event) Reply(ctx context.Context, reply Reply) error {
	if e.Replier == nil {
		return ErrNoReplier
	}
	return e.Replier.Reply(ctx, reply)
}

// Command is invoked when a message starts with a prefix and its name.
type Command interface {
	Spec() Spec
	OnStart(ctx context.Context, ev Event, args []string) error
}

// ChatListener sees every message that is not a command. It reports whether
// it consumed the message.
type ChatListener interface {
	OnChat(ctx context.Context, ev Event) (bool, error)
}

// FormatUsage expands {pn} in usage for the given prefix and name.
func FormatUsage(usage, prefix, name string) string {
	return strings.ReplaceAll(usage, "{pn}", prefix+name)
}
