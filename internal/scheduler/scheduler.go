// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scheduler runs harvest and pick on cron schedules for the serve
// command.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTimeout bounds a single job run.
const DefaultTimeout = 30 * time.Minute

// Job is a scheduled task.
type Job func(ctx context.Context) error

// JobInfo describes a registered job.
type JobInfo struct {
	Name     string
	Schedule string
	NextRun  time.Time
	LastRun  time.Time
}

type entry struct {
	id       cron.EntryID
	schedule string
}

// Scheduler wraps a cron runner. Overlapping runs of the same job are
// skipped.
type Scheduler struct {
	cron     *cron.Cron
	timezone *time.Location
	timeout  time.Duration
	log      *log.Logger

	mu   sync.Mutex
	jobs map[string]entry
	base context.Context
}

// New returns a scheduler for the named time zone. An empty zone means the
// local zone. Log lines go to w, or stderr when w is nil.
func New(timezone string, timeout time.Duration, w io.Writer) (*Scheduler, error) {
	loc := time.Local
	if timezone != "" {
		var err error
		loc, err = time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
		}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if w == nil {
		w = os.Stderr
	}
	logger := log.New(w, "[scheduler] ", log.LstdFlags|log.Lmsgprefix)

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logger))),
	)
	return &Scheduler{
		cron:     c,
		timezone: loc,
		timeout:  timeout,
		log:      logger,
		jobs:     make(map[string]entry),
		base:     context.Background(),
	}, nil
}

// AddJob registers job under name with a five-field cron schedule.
// Registering a name twice replaces the earlier job.
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	id, err := s.cron.AddFunc(schedule, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("scheduling job %s: %w", name, err)
	}

	s.mu.Lock()
	if prev, ok := s.jobs[name]; ok {
		s.cron.Remove(prev.id)
	}
	s.jobs[name] = entry{id: id, schedule: schedule}
	s.mu.Unlock()

	s.log.Printf("added job %s (schedule: %s, tz: %s)", name, schedule, s.timezone)
	return nil
}

// RemoveJob unregisters name.
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.jobs[name]; ok {
		s.cron.Remove(e.id)
		delete(s.jobs, name)
		s.log.Printf("removed job %s", name)
	}
}

// Start runs jobs in the background. Job contexts derive from ctx, so
// cancelling ctx cancels running jobs.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.base = ctx
	s.mu.Unlock()
	s.log.Printf("starting")
	s.cron.Start()
}

// Stop stops scheduling and returns a context that is done when running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	s.log.Printf("stopping")
	return s.cron.Stop()
}

// RunNow executes the named job immediately under the job timeout.
func (s *Scheduler) RunNow(name string, job Job) error {
	s.log.Printf("running job now: %s", name)
	return s.exec(name, job)
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, e := range s.jobs {
		ce := s.cron.Entry(e.id)
		infos = append(infos, JobInfo{Name: name, Schedule: e.schedule, NextRun: ce.Next, LastRun: ce.Prev})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (s *Scheduler) run(name string, job Job) {
	s.log.Printf("starting job: %s", name)
	start := time.Now()
	if err := s.exec(name, job); err != nil {
		s.log.Printf("job %s failed: %v", name, err)
		return
	}
	s.log.Printf("job %s completed in %v", name, time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) exec(name string, job Job) (err error) {
	s.mu.Lock()
	base := s.base
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
	}()
	return job(ctx)
}
