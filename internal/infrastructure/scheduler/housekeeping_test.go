package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
)

type stubExpirer struct {
	calls int
	n     int64
	err   error
}

func (s *stubExpirer) DeactivateExpired(context.Context) (int64, error) {
	s.calls++
	return s.n, s.err
}

type stubStats struct {
	invalidated int
	computed    int
	err         error
}

func (s *stubStats) Stats(context.Context) (*ports.LifecycleStats, error) {
	s.computed++
	if s.err != nil {
		return nil, s.err
	}
	return &ports.LifecycleStats{}, nil
}

func (s *stubStats) Invalidate(context.Context) { s.invalidated++ }

func TestHousekeeper_RunOnce(t *testing.T) {
	codes := &stubExpirer{n: 3}
	stats := &stubStats{}
	h := NewHousekeeper(codes, stats, zerolog.Nop())

	require.NoError(t, h.RunOnce(context.Background()))
	assert.Equal(t, 1, codes.calls)
	assert.Equal(t, 1, stats.invalidated)
	assert.Equal(t, 1, stats.computed)
}

func TestHousekeeper_RunOnceCollectsErrors(t *testing.T) {
	codes := &stubExpirer{err: errors.New("mongo down")}
	stats := &stubStats{err: errors.New("redis down")}
	h := NewHousekeeper(codes, stats, zerolog.Nop())

	err := h.RunOnce(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestHousekeeper_StartRegistersJobs(t *testing.T) {
	c := cron.New(cron.WithLogger(cron.DiscardLogger))
	h := NewHousekeeper(&stubExpirer{}, &stubStats{}, zerolog.Nop(), WithCron(c))

	require.NoError(t, h.Start())
	<-h.Stop().Done()
	assert.Len(t, c.Entries(), 2)
}

func TestHousekeeper_InvalidSchedule(t *testing.T) {
	h := NewHousekeeper(&stubExpirer{}, nil, zerolog.Nop(), WithExpirySchedule("not a schedule"))
	assert.Error(t, h.Start())
}

func TestHousekeeper_NothingToDo(t *testing.T) {
	h := NewHousekeeper(nil, nil, zerolog.Nop())
	assert.NoError(t, h.Start())
	assert.NoError(t, h.RunOnce(context.Background()))
}
