// Package schedule runs periodic housekeeping: expiring pending selections
// and sweeping scratch files left behind by crashed sends.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger drops expired entries and reports how many were removed.
type Purger interface {
	Purge() int
}

// Sweeper removes scratch files older than ttl.
type Sweeper interface {
	Sweep(ttl time.Duration) (int, error)
}

// Config holds cron specs. Specs accept the standard five fields and
// descriptors such as "@every 1m".
type Config struct {
	PurgeSchedule string
	SweepSchedule string
	ScratchTTL    time.Duration
}

// Janitor owns the cron scheduler for housekeeping jobs.
type Janitor struct {
	logger  *slog.Logger
	cron    *cron.Cron
	cfg     Config
	purger  Purger
	sweeper Sweeper
}

// NewJanitor registers the jobs whose dependency is present. purger is nil
// when sessions live in redis, which expires keys itself.
func NewJanitor(log *slog.Logger, cfg Config, purger Purger, sweeper Sweeper) (*Janitor, error) {
	if log == nil {
		log = slog.Default()
	}
	logger := log.With(slog.String("component", "schedule"))
	cronLogger := slogCronLogger{logger: logger}
	j := &Janitor{
		logger:  logger,
		cron:    cron.New(cron.WithLogger(cronLogger), cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		cfg:     cfg,
		purger:  purger,
		sweeper: sweeper,
	}
	if purger != nil {
		if _, err := j.cron.AddFunc(cfg.PurgeSchedule, j.PurgeSessions); err != nil {
			return nil, fmt.Errorf("invalid purge schedule %q: %w", cfg.PurgeSchedule, err)
		}
	}
	if sweeper != nil {
		if cfg.ScratchTTL <= 0 {
			return nil, fmt.Errorf("scratch ttl must be positive")
		}
		if _, err := j.cron.AddFunc(cfg.SweepSchedule, j.SweepScratch); err != nil {
			return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.SweepSchedule, err)
		}
	}
	return j, nil
}

// Start runs the scheduler in its own goroutine.
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info("janitor started", slog.Int("jobs", len(j.cron.Entries())))
}

// Stop stops scheduling and waits for running jobs or ctx, whichever ends first.
func (j *Janitor) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Jobs reports the number of registered jobs.
func (j *Janitor) Jobs() int {
	return len(j.cron.Entries())
}

// PurgeSessions drops expired pending selections.
func (j *Janitor) PurgeSessions() {
	if j.purger == nil {
		return
	}
	if removed := j.purger.Purge(); removed > 0 {
		j.logger.Info("purged expired selections", slog.Int("removed", removed))
	}
}

// SweepScratch removes stale scratch files.
func (j *Janitor) SweepScratch() {
	if j.sweeper == nil {
		return
	}
	if _, err := j.sweeper.Sweep(j.cfg.ScratchTTL); err != nil {
		j.logger.Warn("scratch sweep failed", slog.Any("error", err))
	}
}

// slogCronLogger adapts slog to cron.Logger.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
