package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/brewcart/brewcart-backend/pkg/metrics"
	"go.uber.org/multierr"
)

const defaultTick = time.Minute

type jobMetrics interface {
	JobRun(job, outcome string, duration time.Duration)
}

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locks    LockFactory
	Metrics  jobMetrics
	Tick     time.Duration
}

// Service wakes on a fixed tick and runs every job whose schedule is due.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locks    LockFactory
	metrics  jobMetrics
	tick     time.Duration
	now      func() time.Time
	next     map[string]time.Time
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock factory required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	tick := params.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locks:    params.Locks,
		metrics:  params.Metrics,
		tick:     tick,
		now:      func() time.Time { return time.Now().UTC() },
		next:     map[string]time.Time{},
	}, nil
}

// Run schedules jobs until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.prime(s.now())
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runDue(ctx, s.now()); err != nil {
				s.logg.Error(ctx, "scheduled run failed", err)
			}
		}
	}
}

// prime computes the first activation of every job.
func (s *Service) prime(now time.Time) {
	for _, entry := range s.registry.Entries() {
		next := entry.Next(now)
		s.next[entry.Job.Name()] = next
		s.logg.Info(s.logg.WithFields(context.Background(), map[string]any{
			"job":      entry.Job.Name(),
			"schedule": entry.Spec,
			"next_run": next,
		}), "job scheduled")
	}
}

// runDue runs the jobs due at now and returns the combined job errors.
func (s *Service) runDue(ctx context.Context, now time.Time) error {
	var errs error
	for _, entry := range s.registry.Entries() {
		name := entry.Job.Name()
		next, ok := s.next[name]
		if !ok {
			next = entry.Next(now)
			s.next[name] = next
		}
		if now.Before(next) {
			continue
		}
		s.next[name] = entry.Next(now)
		errs = multierr.Append(errs, s.runLocked(ctx, entry.Job))
	}
	return errs
}

// RunOnce runs every registered job immediately, still honoring the locks.
func (s *Service) RunOnce(ctx context.Context) error {
	var errs error
	for _, entry := range s.registry.Entries() {
		errs = multierr.Append(errs, s.runLocked(ctx, entry.Job))
	}
	return errs
}

func (s *Service) runLocked(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	lock, err := s.locks(job.Name())
	if err != nil {
		return fmt.Errorf("%s: lock: %w", job.Name(), err)
	}
	locked, err := lock.Acquire(jobCtx)
	if err != nil {
		return fmt.Errorf("%s: lock acquire: %w", job.Name(), err)
	}
	if !locked {
		s.logg.Info(jobCtx, "job running on another instance; skipping")
		s.record(job.Name(), metrics.CronSkipped, 0)
		return nil
	}
	defer func() {
		if relErr := lock.Release(jobCtx); relErr != nil {
			s.logg.Error(jobCtx, "failed to release cron lock", relErr)
		}
	}()
	if err := s.runJob(jobCtx, job); err != nil {
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithField(ctx, "event", "cron.job")
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.record(job.Name(), metrics.CronFailed, duration)
		return err
	}
	s.logg.Info(jobCtx, "job completed")
	s.record(job.Name(), metrics.CronSucceeded, duration)
	return nil
}

func (s *Service) record(job, outcome string, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.JobRun(job, outcome, duration)
	}
}
