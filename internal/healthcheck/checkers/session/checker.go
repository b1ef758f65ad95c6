// Package sessionchecker reports whether the pending-selection store is reachable.
package sessionchecker

import (
	"context"
	"log/slog"
	"time"

	"github.com/memohai/ytbot/internal/healthcheck"
	"github.com/memohai/ytbot/internal/session"
)

const (
	checkTypeSessionStore = "session.store"
	defaultCheckTimeout   = 3 * time.Second
)

// Checker pings the session store when it supports it. In-memory stores
// always pass.
type Checker struct {
	logger  *slog.Logger
	store   session.Store
	backend string
	timeout time.Duration
}

// NewChecker creates a session store checker. backend is shown in the result.
func NewChecker(log *slog.Logger, store session.Store, backend string) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:  log.With(slog.String("checker", "healthcheck_session")),
		store:   store,
		backend: backend,
		timeout: defaultCheckTimeout,
	}
}

func (c *Checker) ListChecks(ctx context.Context, _ string) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:       checkTypeSessionStore,
		Type:     checkTypeSessionStore,
		Title:    "Pending selections",
		Subtitle: c.backend,
		Status:   healthcheck.StatusOK,
		Summary:  "Session store is available.",
	}
	if c.store == nil {
		item.Status = healthcheck.StatusError
		item.Summary = "Session store is not configured."
		return []healthcheck.CheckResult{item}
	}
	pinger, ok := c.store.(session.Pinger)
	if !ok {
		return []healthcheck.CheckResult{item}
	}
	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := pinger.Ping(pingCtx); err != nil {
		c.logger.Warn("session store ping failed", slog.String("backend", c.backend), slog.Any("error", err))
		item.Status = healthcheck.StatusError
		item.Summary = "Session store is unreachable."
		item.Detail = err.Error()
	}
	return []healthcheck.CheckResult{item}
}
