package handlers

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/memohai/ytbot/internal/channel"
)

// ConnectionLister exposes runtime connection statuses.
type ConnectionLister interface {
	ConnectionStatuses() []channel.ConnectionStatus
}

type ChannelHandler struct {
	registry    *channel.Registry
	connections ConnectionLister
}

func NewChannelHandler(registry *channel.Registry, connections ConnectionLister) *ChannelHandler {
	return &ChannelHandler{registry: registry, connections: connections}
}

func (h *ChannelHandler) Register(e *echo.Echo) {
	group := e.Group("/channels")
	group.GET("", h.ListChannels)
	group.GET("/:platform", h.GetChannel)
}

type ChannelMeta struct {
	Type         string                      `json:"type"`
	DisplayName  string                      `json:"display_name"`
	Configless   bool                        `json:"configless"`
	Capabilities channel.ChannelCapabilities `json:"capabilities"`
	Connections  []channel.ConnectionStatus  `json:"connections"`
}

// ListChannels lists registered channel types with their live connections.
func (h *ChannelHandler) ListChannels(c echo.Context) error {
	descs := h.registry.ListDescriptors()
	items := make([]ChannelMeta, 0, len(descs))
	for _, desc := range descs {
		items = append(items, h.meta(desc))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Type < items[j].Type
	})
	return c.JSON(http.StatusOK, items)
}

// GetChannel describes one channel type.
func (h *ChannelHandler) GetChannel(c echo.Context) error {
	channelType, err := h.registry.ParseChannelType(c.Param("platform"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	desc, ok := h.registry.GetDescriptor(channelType)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "channel not found")
	}
	return c.JSON(http.StatusOK, h.meta(desc))
}

func (h *ChannelHandler) meta(desc channel.Descriptor) ChannelMeta {
	meta := ChannelMeta{
		Type:         desc.Type.String(),
		DisplayName:  desc.DisplayName,
		Configless:   desc.Configless,
		Capabilities: desc.Capabilities,
		Connections:  []channel.ConnectionStatus{},
	}
	if h.connections == nil {
		return meta
	}
	for _, status := range h.connections.ConnectionStatuses() {
		if status.ChannelType == desc.Type {
			meta.Connections = append(meta.Connections, status)
		}
	}
	return meta
}
