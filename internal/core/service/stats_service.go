package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

const (
	statsCacheKey   = "stats:lifecycle"
	defaultStatsTTL = time.Hour
)

// statsInvalidator is notified after any change that affects LifecycleStats.
type statsInvalidator interface {
	Invalidate(ctx context.Context)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context) {}

// StatsService serves lifecycle counters through an explicit cache.
type StatsService struct {
	accounts ports.AccountRepository
	codes    ports.InvitationRepository
	cache    ports.Cache
	ttl      time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewStatsService(
	accounts ports.AccountRepository,
	codes ports.InvitationRepository,
	cache ports.Cache,
	ttl time.Duration,
	log zerolog.Logger,
) *StatsService {
	if ttl <= 0 {
		ttl = defaultStatsTTL
	}
	return &StatsService{
		accounts: accounts,
		codes:    codes,
		cache:    cache,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

func (s *StatsService) Stats(ctx context.Context) (*ports.LifecycleStats, error) {
	var out ports.LifecycleStats
	if err := s.cache.GetOrRefresh(ctx, statsCacheKey, s.ttl, &out, s.compute); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *StatsService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, statsCacheKey); err != nil {
		s.log.Warn().Err(err).Msg("stats cache invalidation failed")
	}
}

func (s *StatsService) compute(ctx context.Context) (any, error) {
	accounts, err := s.accounts.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}
	codes, err := s.codes.Stats(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("code stats: %w", err)
	}
	return &ports.LifecycleStats{Accounts: accounts, Codes: codes}, nil
}
