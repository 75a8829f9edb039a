package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fixora/flowauth/application/port/outbound"
	"github.com/fixora/flowauth/infrastructure/service/logger"
)

const DefaultSweepSchedule = "@every 1h"

// SweepScheduler runs Sweep on a cron schedule in the background.
type SweepScheduler struct {
	cron    *cron.Cron
	sweeper outbound.Sweeper
	logger  logger.Logger
	timeout time.Duration
}

func NewSweepScheduler(sweeper outbound.Sweeper, schedule string, log logger.Logger) (*SweepScheduler, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	s := &SweepScheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		logger:  log.WithFields(map[string]interface{}{"component": "blacklist_sweeper"}),
		timeout: 5 * time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *SweepScheduler) Start() {
	s.cron.Start()
	s.logger.Info(context.Background(), "Blacklist sweeper started", nil)
}

// Stop halts the schedule and waits for a running sweep, or for ctx.
func (s *SweepScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	s.logger.Info(context.Background(), "Blacklist sweeper stopped", nil)
}

// RunOnce performs a single sweep.
func (s *SweepScheduler) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	removed, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error(ctx, "Blacklist sweep failed", err, map[string]interface{}{
			"removed": removed,
		})
		return removed, err
	}
	logger.LogPerformance(ctx, s.logger, "blacklist_sweep", time.Since(start), map[string]interface{}{
		"removed": removed,
	})
	return removed, nil
}

func (s *SweepScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}
