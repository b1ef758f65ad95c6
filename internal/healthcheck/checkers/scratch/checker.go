// Package scratchchecker reports whether the scratch directory accepts writes.
package scratchchecker

import (
	"context"
	"log/slog"

	"github.com/memohai/ytbot/internal/healthcheck"
)

const checkTypeScratch = "storage.scratch"

// Prober verifies a storage location is writable.
type Prober interface {
	Probe(ctx context.Context) error
	Root() string
}

type Checker struct {
	logger *slog.Logger
	prober Prober
}

func NewChecker(log *slog.Logger, prober Prober) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger: log.With(slog.String("checker", "healthcheck_scratch")),
		prober: prober,
	}
}

func (c *Checker) ListChecks(ctx context.Context, _ string) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:      checkTypeScratch,
		Type:    checkTypeScratch,
		Title:   "Scratch storage",
		Status:  healthcheck.StatusOK,
		Summary: "Scratch directory is writable.",
	}
	if c.prober == nil {
		item.Status = healthcheck.StatusError
		item.Summary = "Scratch storage is not configured."
		return []healthcheck.CheckResult{item}
	}
	item.Subtitle = c.prober.Root()
	if err := c.prober.Probe(ctx); err != nil {
		c.logger.Warn("scratch probe failed", slog.String("root", item.Subtitle), slog.Any("error", err))
		item.Status = healthcheck.StatusError
		item.Summary = "Scratch directory is not writable."
		item.Detail = err.Error()
	}
	return []healthcheck.CheckResult{item}
}
