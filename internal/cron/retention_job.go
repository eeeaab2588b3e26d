package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/logger"
)

// Default retention windows.
const (
	NotificationRetention = 30 * 24 * time.Hour
	OutboxRetention       = 7 * 24 * time.Hour
)

// PruneFunc deletes rows older than cutoff and reports how many went.
type PruneFunc func(ctx context.Context, cutoff time.Time) (int64, error)

type RetentionJobParams struct {
	Name      string
	Logger    *logger.Logger
	Prune     PruneFunc
	Retention time.Duration
	// Fallback applies when Retention is unset.
	Fallback time.Duration
}

// NewRetentionJob builds a job that prunes rows past a fixed age. What counts
// as prunable (read notifications, published outbox rows) is up to Prune.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	switch {
	case params.Name == "":
		return nil, errors.New("job name required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Prune == nil:
		return nil, fmt.Errorf("%s: prune func required", params.Name)
	}
	window := params.Retention
	if window <= 0 {
		window = params.Fallback
	}
	if window <= 0 {
		return nil, fmt.Errorf("%s: retention window required", params.Name)
	}
	return &retentionJob{
		name:   params.Name,
		logg:   params.Logger,
		prune:  params.Prune,
		window: window,
		now:    time.Now,
	}, nil
}

type retentionJob struct {
	name   string
	logg   *logger.Logger
	prune  PruneFunc
	window time.Duration
	now    func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.window)
	deleted, err := j.prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.window.String(),
		"rows_deleted": deleted,
	}), "retention sweep complete")
	return nil
}
