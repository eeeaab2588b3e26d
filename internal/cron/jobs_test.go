package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/brewcart/brewcart-backend/pkg/logger"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type cutoffRecorder struct {
	cutoff time.Time
	rows   int64
	err    error
}

func (c *cutoffRecorder) prune(_ context.Context, cutoff time.Time) (int64, error) {
	c.cutoff = cutoff
	return c.rows, c.err
}

func (c *cutoffRecorder) ExpireStaleUnpaid(_ context.Context, cutoff time.Time) (int, error) {
	c.cutoff = cutoff
	return int(c.rows), c.err
}

var fixedNow = time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

func TestRetentionJobWindows(t *testing.T) {
	cases := []struct {
		name      string
		retention time.Duration
		fallback  time.Duration
		want      time.Duration
	}{
		{"fallback", 0, NotificationRetention, 30 * 24 * time.Hour},
		{"configured", 48 * time.Hour, OutboxRetention, 48 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &cutoffRecorder{rows: 42}
			job, err := NewRetentionJob(RetentionJobParams{
				Name:      "sweep",
				Logger:    quietLogger(),
				Prune:     repo.prune,
				Retention: tc.retention,
				Fallback:  tc.fallback,
			})
			require.NoError(t, err)
			require.Equal(t, "sweep", job.Name())
			job.(*retentionJob).now = func() time.Time { return fixedNow }

			require.NoError(t, job.Run(context.Background()))
			require.Equal(t, fixedNow.Add(-tc.want), repo.cutoff)
		})
	}
}

func TestRetentionJobWrapsPruneErrors(t *testing.T) {
	repo := &cutoffRecorder{err: errors.New("boom")}
	job, err := NewRetentionJob(RetentionJobParams{Name: "outbox-retention", Logger: quietLogger(), Prune: repo.prune, Fallback: OutboxRetention})
	require.NoError(t, err)
	require.EqualError(t, job.Run(context.Background()), "outbox-retention: boom")
}

func TestUnpaidOrderJobPassesCutoff(t *testing.T) {
	orders := &cutoffRecorder{rows: 3}
	job, err := NewUnpaidOrderJob(UnpaidOrderJobParams{Logger: quietLogger(), Orders: orders, TTL: 90 * time.Minute})
	require.NoError(t, err)
	job.(*unpaidOrderJob).now = func() time.Time { return fixedNow }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, fixedNow.Add(-90*time.Minute), orders.cutoff)

	orders.err = errors.New("db down")
	require.ErrorContains(t, job.Run(context.Background()), "db down")
}

func TestJobConstructorsRequireDependencies(t *testing.T) {
	prune := (&cutoffRecorder{}).prune
	for _, params := range []RetentionJobParams{
		{Logger: quietLogger(), Prune: prune, Fallback: time.Hour},
		{Name: "x", Prune: prune, Fallback: time.Hour},
		{Name: "x", Logger: quietLogger(), Fallback: time.Hour},
		{Name: "x", Logger: quietLogger(), Prune: prune},
	} {
		_, err := NewRetentionJob(params)
		require.Error(t, err)
	}
	_, err := NewUnpaidOrderJob(UnpaidOrderJobParams{Logger: quietLogger()})
	require.Error(t, err)
}
