// Package scheduler runs periodic lifecycle housekeeping on a cron schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/api/metrics"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

const (
	defaultExpirySpec = "@hourly"
	defaultStatsSpec  = "@every 15m"
)

// CodeExpirer switches off invitation codes past their expiry.
type CodeExpirer interface {
	DeactivateExpired(ctx context.Context) (int64, error)
}

// Housekeeper deactivates expired invitation codes and keeps the back-office
// stats cache warm.
type Housekeeper struct {
	codes CodeExpirer
	stats ports.StatsService
	cron  *cron.Cron
	log   zerolog.Logger

	expirySchedule string
	statsSchedule  string
}

// Option customises the Housekeeper.
type Option func(*Housekeeper)

// WithCron injects a preconfigured cron instance, mostly for tests.
func WithCron(c *cron.Cron) Option {
	return func(h *Housekeeper) {
		if c != nil {
			h.cron = c
		}
	}
}

// WithExpirySchedule overrides the cron spec for code expiry.
func WithExpirySchedule(spec string) Option {
	return func(h *Housekeeper) {
		if spec != "" {
			h.expirySchedule = spec
		}
	}
}

// WithStatsSchedule overrides the cron spec for stats warming.
func WithStatsSchedule(spec string) Option {
	return func(h *Housekeeper) {
		if spec != "" {
			h.statsSchedule = spec
		}
	}
}

// NewHousekeeper builds a Housekeeper. A nil dependency skips its job.
func NewHousekeeper(codes CodeExpirer, stats ports.StatsService, log zerolog.Logger, opts ...Option) *Housekeeper {
	h := &Housekeeper{
		codes:          codes,
		stats:          stats,
		log:            log,
		expirySchedule: defaultExpirySpec,
		statsSchedule:  defaultStatsSpec,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.cron == nil {
		h.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return h
}

// Start registers the jobs and launches the scheduler.
func (h *Housekeeper) Start() error {
	if h.codes == nil && h.stats == nil {
		return nil
	}

	if h.codes != nil {
		if _, err := h.cron.AddFunc(h.expirySchedule, func() {
			if _, err := h.expireCodes(context.Background()); err != nil {
				h.log.Warn().Err(err).Msg("code expiry failed")
			}
		}); err != nil {
			return fmt.Errorf("schedule code expiry %q: %w", h.expirySchedule, err)
		}
	}

	if h.stats != nil {
		if _, err := h.cron.AddFunc(h.statsSchedule, func() {
			if err := h.warmStats(context.Background()); err != nil {
				h.log.Warn().Err(err).Msg("stats refresh failed")
			}
		}); err != nil {
			return fmt.Errorf("schedule stats refresh %q: %w", h.statsSchedule, err)
		}
	}

	h.cron.Start()
	h.log.Info().
		Str("expiry_schedule", h.expirySchedule).
		Str("stats_schedule", h.statsSchedule).
		Msg("housekeeping started")
	return nil
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (h *Housekeeper) Stop() context.Context {
	return h.cron.Stop()
}

// RunOnce runs every configured job sequentially.
func (h *Housekeeper) RunOnce(ctx context.Context) error {
	var errs error
	if h.codes != nil {
		if _, err := h.expireCodes(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if h.stats != nil {
		if err := h.warmStats(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (h *Housekeeper) expireCodes(ctx context.Context) (int64, error) {
	n, err := h.codes.DeactivateExpired(ctx)
	if err != nil {
		return 0, err
	}
	metrics.CodesExpiredTotal.Add(float64(n))
	return n, nil
}

func (h *Housekeeper) warmStats(ctx context.Context) error {
	h.stats.Invalidate(ctx)
	_, err := h.stats.Stats(ctx)
	return err
}
