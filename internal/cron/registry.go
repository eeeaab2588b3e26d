package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	robfig "github.com/robfig/cron/v3"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry is a job bound to its parsed schedule.
type Entry struct {
	Spec     string
	Job      Job
	schedule robfig.Schedule
}

// Next reports the first activation strictly after t.
func (e Entry) Next(t time.Time) time.Time {
	return e.schedule.Next(t)
}

// Registry tracks registered cron jobs.
type Registry struct {
	entries []Entry
	names   map[string]struct{}
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: map[string]struct{}{}}
}

// Register adds a job under a standard five-field cron spec or a descriptor such
// as "@hourly" or "@every 15m".
func (r *Registry) Register(spec string, job Job) error {
	if job == nil {
		return errors.New("job required")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return errors.New("job name required")
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	schedule, err := robfig.ParseStandard(strings.TrimSpace(spec))
	if err != nil {
		return fmt.Errorf("job %q: parse schedule %q: %w", name, spec, err)
	}
	r.names[name] = struct{}{}
	r.entries = append(r.entries, Entry{Spec: spec, Job: job, schedule: schedule})
	return nil
}

// Entries returns the registered entries in the order they were added.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}
