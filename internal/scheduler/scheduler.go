// Package scheduler runs the periodic weekly-summary refresh.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	log     *zap.Logger
	timeout time.Duration
	refresh func(ctx context.Context) error
}

// New creates a scheduler whose cron specs are interpreted in loc. Each run of
// the refresh function is bounded by timeout when it is positive.
func New(loc *time.Location, timeout time.Duration, log *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
		timeout: timeout,
	}
}

func (s *Scheduler) SetRefreshFunction(f func(ctx context.Context) error) {
	s.refresh = f
}

// Start registers the refresh on spec and starts the cron loop. An empty spec
// disables the scheduler.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		s.log.Info("summary refresh schedule not set, scheduler disabled")
		return nil
	}
	if s.refresh == nil {
		return fmt.Errorf("refresh function not set")
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}

	s.cron.Start()
	s.log.Info("scheduler started", zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) run() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	s.log.Info("summary refresh triggered")
	if err := s.refresh(ctx); err != nil {
		s.log.Error("summary refresh failed", zap.Error(err))
		return
	}
	s.log.Info("summary refresh finished", zap.Duration("took", time.Since(start)))
}

// Stop waits for a running refresh and cancels its context.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
