package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/brewcart/brewcart-backend/pkg/logger"
)

type runner interface {
	Name() string
	Run(ctx context.Context) error
}

type dependency struct {
	name string
	ping func(context.Context) error
}

type ServiceParams struct {
	Logger       *logger.Logger
	Dependencies []dependency
	Runners      []runner
}

// Service runs every subscription consumer side by side. One consumer failing
// stops the others so the process restarts as a whole.
type Service struct {
	logg    *logger.Logger
	deps    []dependency
	runners []runner
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Runners) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	return &Service{logg: params.Logger, deps: params.Dependencies, runners: params.Runners}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, r := range s.runners {
		group.Go(func() error {
			runCtx := s.logg.WithField(groupCtx, "consumer", r.Name())
			s.logg.Info(runCtx, "consumer started")
			err := r.Run(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logg.Error(runCtx, "consumer stopped unexpectedly", err)
				return fmt.Errorf("%s: %w", r.Name(), err)
			}
			if ctx.Err() == nil {
				return fmt.Errorf("%s: consumer exited", r.Name())
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
