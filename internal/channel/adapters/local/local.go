// Package local implements the in-process channel used by the HTTP API and tests.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/memohai/ytbot/internal/channel"
	"github.com/memohai/ytbot/internal/media"
)

// Type is the registered channel type for the local channel.
const Type channel.ChannelType = "local"

// Adapter publishes outbound messages to a RouteHub.
type Adapter struct {
	hub    *RouteHub
	logger *slog.Logger
}

// NewAdapter creates a local adapter backed by hub.
func NewAdapter(log *slog.Logger, hub *RouteHub) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{
		hub:    hub,
		logger: log.With(slog.String("adapter", "local")),
	}
}

func (a *Adapter) Type() channel.ChannelType {
	return Type
}

func (a *Adapter) Descriptor() channel.Descriptor {
	return channel.Descriptor{
		Type:        Type,
		DisplayName: "Local",
		Configless:  true,
		Capabilities: channel.ChannelCapabilities{
			Text:        true,
			Markdown:    true,
			Reply:       true,
			Attachments: true,
			Media:       true,
		},
		OutboundPolicy: channel.OutboundPolicy{
			TextChunkLimit: 1 << 16,
			CaptionLimit:   1 << 16,
		},
	}
}

// Connect has nothing to dial; inbound messages arrive through the HTTP handler.
func (a *Adapter) Connect(ctx context.Context, cfg channel.ChannelConfig, handler channel.InboundHandler) (channel.Connection, error) {
	return channel.NewConnection(cfg, func(context.Context) error { return nil }), nil
}

// Send publishes msg to subscribers of its target. Scratch files are removed
// once a send returns, so attachments are reduced to name, size and type.
func (a *Adapter) Send(ctx context.Context, cfg channel.ChannelConfig, msg channel.OutboundMessage) error {
	if a.hub == nil {
		return fmt.Errorf("route hub not configured")
	}
	target := strings.TrimSpace(msg.Target)
	if target == "" {
		return fmt.Errorf("local target is required")
	}
	out := msg.Message
	out.Attachments = describeAttachments(msg.Message.Attachments)
	delivered := a.hub.Publish(target, out)
	a.logger.Debug("outbound published",
		slog.String("target", target),
		slog.Int("subscribers", delivered),
		slog.Int("attachments", len(out.Attachments)))
	return nil
}

func describeAttachments(items []channel.Attachment) []channel.Attachment {
	if len(items) == 0 {
		return nil
	}
	out := make([]channel.Attachment, 0, len(items))
	for _, att := range items {
		item := att
		if path := strings.TrimSpace(att.Path); path != "" {
			if item.Name == "" {
				item.Name = filepath.Base(path)
			}
			if info, err := os.Stat(path); err == nil {
				item.Size = info.Size()
			}
			if item.Mime == "" {
				item.Mime = media.DetectFileMime(path)
			}
			item.Path = ""
		}
		out = append(out, item)
	}
	return out
}
