// Package inbound turns channel messages into command events.
package inbound

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/memohai/ytbot/internal/channel"
	"github.com/memohai/ytbot/internal/command"
)

const processingStatusTimeout = 60 * time.Second

// Processor routes inbound channel messages to the command registry and
// reports processing status for command invocations.
type Processor struct {
	logger   *slog.Logger
	commands *command.Registry
	registry *channel.Registry
}

// NewProcessor creates a processor. registry may be nil, in which case no
// processing status is reported.
func NewProcessor(log *slog.Logger, commands *command.Registry, registry *channel.Registry) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		logger:   log.With(slog.String("component", "channel_inbound")),
		commands: commands,
		registry: registry,
	}
}

// HandleInbound implements channel.InboundProcessor.
func (p *Processor) HandleInbound(ctx context.Context, cfg channel.ChannelConfig, msg channel.InboundMessage, sender channel.ReplySender) error {
	if p.commands == nil {
		return fmt.Errorf("command registry not configured")
	}
	if sender == nil {
		return fmt.Errorf("reply sender not configured")
	}
	text := msg.Message.PlainText()
	if text == "" {
		return nil
	}
	target := strings.TrimSpace(msg.ReplyTarget)
	if target == "" {
		return fmt.Errorf("reply target missing")
	}

	ev := command.Event{
		ThreadID:   msg.ThreadKey(),
		MessageID:  strings.TrimSpace(msg.Message.ID),
		SenderID:   strings.TrimSpace(msg.Sender.SubjectID),
		SenderName: strings.TrimSpace(msg.Sender.DisplayName),
		Body:       text,
		Replier:    newReplier(sender, target),
	}

	cmd, _, _, isCommand := p.commands.Parse(text)
	if !isCommand {
		_, err := p.commands.Dispatch(ctx, ev)
		return err
	}

	notifier := p.resolveProcessingStatusNotifier(msg.Channel)
	info := channel.ProcessingStatusInfo{
		BotID:           msg.BotID,
		RouteID:         msg.RoutingKey(),
		Query:           text,
		ReplyTarget:     target,
		SourceMessageID: ev.MessageID,
	}
	handle, statusErr := p.notifyProcessingStarted(ctx, notifier, cfg, msg, info)
	if statusErr != nil {
		p.logProcessingStatusError("processing_started", msg, statusErr)
	}

	p.logger.Info("inbound command",
		slog.String("channel", msg.Channel.String()),
		slog.String("command", cmd.Spec().Name),
		slog.String("thread_id", ev.ThreadID),
		slog.String("sender_id", ev.SenderID))

	_, err := p.commands.Dispatch(ctx, ev)
	if err != nil {
		if statusErr := p.notifyProcessingFailed(ctx, notifier, cfg, msg, info, handle, err); statusErr != nil {
			p.logProcessingStatusError("processing_failed", msg, statusErr)
		}
		return err
	}
	if statusErr := p.notifyProcessingCompleted(ctx, notifier, cfg, msg, info, handle); statusErr != nil {
		p.logProcessingStatusError("processing_completed", msg, statusErr)
	}
	return nil
}

func (p *Processor) resolveProcessingStatusNotifier(channelType channel.ChannelType) channel.ProcessingStatusNotifier {
	if p.registry == nil {
		return nil
	}
	notifier, ok := p.registry.GetProcessingStatusNotifier(channelType)
	if !ok {
		return nil
	}
	return notifier
}

func (p *Processor) notifyProcessingStarted(
	ctx context.Context,
	notifier channel.ProcessingStatusNotifier,
	cfg channel.ChannelConfig,
	msg channel.InboundMessage,
	info channel.ProcessingStatusInfo,
) (channel.ProcessingStatusHandle, error) {
	if notifier == nil {
		return channel.ProcessingStatusHandle{}, nil
	}
	statusCtx, cancel := context.WithTimeout(ctx, processingStatusTimeout)
	defer cancel()
	return notifier.ProcessingStarted(statusCtx, cfg, msg, info)
}

func (p *Processor) notifyProcessingCompleted(
	ctx context.Context,
	notifier channel.ProcessingStatusNotifier,
	cfg channel.ChannelConfig,
	msg channel.InboundMessage,
	info channel.ProcessingStatusInfo,
	handle channel.ProcessingStatusHandle,
) error {
	if notifier == nil {
		return nil
	}
	statusCtx, cancel := context.WithTimeout(ctx, processingStatusTimeout)
	defer cancel()
	return notifier.ProcessingCompleted(statusCtx, cfg, msg, info, handle)
}

func (p *Processor) notifyProcessingFailed(
	ctx context.Context,
	notifier channel.ProcessingStatusNotifier,
	cfg channel.ChannelConfig,
	msg channel.InboundMessage,
	info channel.ProcessingStatusInfo,
	handle channel.ProcessingStatusHandle,
	cause error,
) error {
	if notifier == nil {
		return nil
	}
	statusCtx, cancel := context.WithTimeout(ctx, processingStatusTimeout)
	defer cancel()
	return notifier.ProcessingFailed(statusCtx, cfg, msg, info, handle, cause)
}

func (p *Processor) logProcessingStatusError(stage string, msg channel.InboundMessage, err error) {
	p.logger.Warn(
		"processing status notify failed",
		slog.String("stage", stage),
		slog.String("channel", msg.Channel.String()),
		slog.String("route_key", msg.RoutingKey()),
		slog.Any("error", err),
	)
}

// newReplier binds command replies to the reply target of one message.
func newReplier(sender channel.ReplySender, target string) command.Replier {
	return command.ReplierFunc(func(ctx context.Context, reply command.Reply) error {
		out := channel.Message{
			Format:      reply.Format,
			Text:        reply.Text,
			Attachments: reply.Attachments,
		}
		if id := strings.TrimSpace(reply.ReplyTo); id != "" {
			out.Reply = &channel.ReplyRef{Target: target, MessageID: id}
		}
		return sender.Send(ctx, channel.OutboundMessage{Target: target, Message: out})
	})
}
