// Package scheduler runs recurring jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner whose jobs receive the Run context.
type Scheduler struct {
	cron *cron.Cron
	jobs []job
}

type job struct {
	spec string
	fn   func(ctx context.Context)
}

func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{cron: cron.New(cron.WithLocation(loc))}
}

// Add validates a standard five-field cron spec (or a descriptor such as
// "@daily") and registers fn under it. Jobs start with Run.
func (s *Scheduler) Add(spec string, fn func(ctx context.Context)) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	s.jobs = append(s.jobs, job{spec: spec, fn: fn})
	return nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.jobs)
}

// Run starts the cron runner and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	for _, j := range s.jobs {
		fn := j.fn
		if _, err := s.cron.AddFunc(j.spec, func() { fn(ctx) }); err != nil {
			return fmt.Errorf("register schedule %q: %w", j.spec, err)
		}
	}
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return nil
}
