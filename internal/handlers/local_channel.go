package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/memohai/ytbot/internal/auth"
	"github.com/memohai/ytbot/internal/channel"
	"github.com/memohai/ytbot/internal/channel/adapters/local"
)

// InboundDispatcher accepts inbound channel messages.
type InboundDispatcher interface {
	HandleInbound(ctx context.Context, cfg channel.ChannelConfig, msg channel.InboundMessage) error
}

// LocalConfigResolver finds the config of the local channel.
type LocalConfigResolver interface {
	FirstByType(channelType channel.ChannelType) (channel.ChannelConfig, bool)
}

// LocalChannelHandler lets HTTP clients chat with the bot. Each token
// subject is its own private thread.
type LocalChannelHandler struct {
	logger     *slog.Logger
	dispatcher InboundDispatcher
	configs    LocalConfigResolver
	routeHub   *local.RouteHub
}

// NewLocalChannelHandler creates a local channel handler.
func NewLocalChannelHandler(log *slog.Logger, dispatcher InboundDispatcher, configs LocalConfigResolver, routeHub *local.RouteHub) *LocalChannelHandler {
	if log == nil {
		log = slog.Default()
	}
	return &LocalChannelHandler{
		logger:     log.With(slog.String("handler", "local_channel")),
		dispatcher: dispatcher,
		configs:    configs,
		routeHub:   routeHub,
	}
}

// Register registers the local channel routes.
func (h *LocalChannelHandler) Register(e *echo.Echo) {
	group := e.Group("/" + local.Type.String())
	group.GET("/stream", h.StreamMessages)
	group.POST("/messages", h.PostMessage)
}

// StreamMessages streams bot replies for the caller as server-sent events.
func (h *LocalChannelHandler) StreamMessages(c echo.Context) error {
	subject, err := auth.SubjectFromContext(c)
	if err != nil {
		return err
	}
	if h.routeHub == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "route hub not configured")
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming not supported")
	}
	writer := bufio.NewWriter(c.Response().Writer)

	_, stream, cancel := h.routeHub.Subscribe(subject)
	defer cancel()
	// Comment line so clients see the stream is open before the first event.
	_, _ = writer.WriteString(": connected\n\n")
	_ = writer.Flush()
	flusher.Flush()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case event, ok := <-stream:
			if !ok {
				return nil
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn("encode local event failed", slog.Any("error", err))
				continue
			}
			if _, err := fmt.Fprintf(writer, "data: %s\n\n", data); err != nil {
				return nil // client disconnected
			}
			if err := writer.Flush(); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

type localMessageRequest struct {
	Text string `json:"text"`
}

type localMessageResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
}

// PostMessage submits a chat message from the caller.
func (h *LocalChannelHandler) PostMessage(c echo.Context) error {
	subject, err := auth.SubjectFromContext(c)
	if err != nil {
		return err
	}
	if h.dispatcher == nil || h.configs == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "channel manager not configured")
	}
	var req localMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	cfg, ok := h.configs.FirstByType(local.Type)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "local channel is not enabled")
	}
	messageID := uuid.NewString()
	msg := channel.InboundMessage{
		Channel:     local.Type,
		Message:     channel.Message{ID: messageID, Format: channel.MessageFormatPlain, Text: text},
		BotID:       cfg.BotID,
		ReplyTarget: subject,
		RouteKey:    subject,
		Sender: channel.Identity{
			SubjectID:   subject,
			DisplayName: subject,
		},
		Conversation: channel.Conversation{
			ID:   subject,
			Type: "p2p",
		},
		ReceivedAt: time.Now().UTC(),
		Source:     "http",
	}
	if err := h.dispatcher.HandleInbound(c.Request().Context(), cfg, msg); err != nil {
		h.logger.Error("local inbound failed", slog.String("subject", subject), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "message could not be processed")
	}
	return c.JSON(http.StatusAccepted, localMessageResponse{Status: "accepted", MessageID: messageID})
}
