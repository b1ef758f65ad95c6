package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/memohai/ytbot/internal/healthcheck"
)

// HealthHandler serves the combined runtime checks.
type HealthHandler struct {
	logger       *slog.Logger
	defaultBotID string
	checkers     []healthcheck.Checker
}

func NewHealthHandler(log *slog.Logger, defaultBotID string, checkers ...healthcheck.Checker) *HealthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &HealthHandler{
		logger:       log.With(slog.String("handler", "health")),
		defaultBotID: defaultBotID,
		checkers:     checkers,
	}
}

func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/health/checks", h.ListChecks)
}

// ListChecks answers 200 when nothing is in error and 503 otherwise, so the
// endpoint doubles as a readiness probe.
func (h *HealthHandler) ListChecks(c echo.Context) error {
	botID := strings.TrimSpace(c.QueryParam("bot_id"))
	if botID == "" {
		botID = h.defaultBotID
	}
	report := healthcheck.Run(c.Request().Context(), botID, h.checkers...)
	status := http.StatusOK
	if report.Status == healthcheck.StatusError {
		status = http.StatusServiceUnavailable
		h.logger.Warn("health checks failing", slog.String("bot_id", botID), slog.Int("checks", len(report.Checks)))
	}
	return c.JSON(status, report)
}
