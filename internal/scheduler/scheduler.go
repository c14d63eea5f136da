// Package scheduler runs named jobs on cron schedules with a seconds field.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"dompet/internal/log"
)

// Job is one unit of scheduled work. Errors are logged, never retried early.
type Job func(ctx context.Context) error

// Scheduler manages the cron jobs of one process.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	logger *log.Logger

	mu      sync.Mutex
	jobs    map[string]Job
	entries map[string]cron.EntryID
}

// New creates a scheduler whose jobs receive ctx. A job still running when
// its next tick arrives is skipped for that tick.
func New(ctx context.Context, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentScheduler)
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger})),
		),
		ctx:     ctx,
		logger:  logger,
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
	}
}

// Add registers job under name on the given six-field cron spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}
	id, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	if err != nil {
		return fmt.Errorf("register %s job: %w", name, err)
	}
	s.jobs[name] = job
	s.entries[name] = id
	return nil
}

// RunNow executes a registered job synchronously, e.g. on startup.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	return s.run(name, job)
}

// Next returns the next activation time of a job, or zero before Start.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.mu.Lock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	s.mu.Unlock()
	s.logger.Info("Scheduler started", "jobs", names)
}

// Stop halts scheduling and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

func (s *Scheduler) run(name string, job Job) error {
	start := time.Now()
	s.logger.InfoContext(s.ctx, "Running job", "job", name)

	err := job(s.ctx)
	elapsed := time.Since(start)
	if err != nil {
		s.logger.ErrorContext(s.ctx, "Job failed",
			"job", name,
			log.FieldDuration, elapsed.Milliseconds(),
			log.FieldError, err)
		return err
	}
	s.logger.InfoContext(s.ctx, "Job finished",
		"job", name,
		log.FieldDuration, elapsed.Milliseconds())
	return nil
}

// cronLogger routes cron's internal messages into our logger.
type cronLogger struct{ l *log.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, log.FieldError, err)...)
}
