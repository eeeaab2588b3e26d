package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresEntriesInOrder(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	require.NoError(t, registry.Register("*/15 * * * *", jobA))
	require.NoError(t, registry.Register("@every 1h", jobB))

	entries := registry.Entries()
	require.Len(t, entries, 2)
	require.Same(t, jobA, entries[0].Job)
	require.Same(t, jobB, entries[1].Job)

	from := time.Date(2026, 1, 1, 10, 7, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC), entries[0].Next(from))

	// callers cannot mutate the internal slice
	entries[0].Job = nil
	require.NotNil(t, registry.Entries()[0].Job)
}

func TestRegistryRejectsBadInput(t *testing.T) {
	registry := NewRegistry()
	require.Error(t, registry.Register("@daily", nil))
	require.Error(t, registry.Register("not a schedule", &stubJob{name: "x"}))
	require.Error(t, registry.Register("@daily", &stubJob{name: ""}))
	require.NoError(t, registry.Register("@daily", &stubJob{name: "x"}))
	require.Error(t, registry.Register("@hourly", &stubJob{name: "x"}))
}
