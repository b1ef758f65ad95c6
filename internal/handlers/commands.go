package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/ytbot/internal/command"
)

type CommandsHandler struct {
	registry *command.Registry
}

func NewCommandsHandler(registry *command.Registry) *CommandsHandler {
	return &CommandsHandler{registry: registry}
}

func (h *CommandsHandler) Register(e *echo.Echo) {
	e.GET("/commands", h.ListCommands)
}

type CommandInfo struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
	Usage       string   `json:"usage,omitempty"`
}

// ListCommands lists registered commands with usage expanded for the
// primary prefix.
func (h *CommandsHandler) ListCommands(c echo.Context) error {
	prefix := h.registry.PrimaryPrefix()
	cmds := h.registry.Commands()
	items := make([]CommandInfo, 0, len(cmds))
	for _, cmd := range cmds {
		spec := cmd.Spec()
		aliases := spec.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		items = append(items, CommandInfo{
			Name:        spec.Name,
			Aliases:     aliases,
			Category:    spec.Category,
			Description: spec.Description,
			Usage:       command.FormatUsage(spec.Usage, prefix, spec.Name),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"prefixes": h.registry.Prefixes(),
		"commands": items,
	})
}
