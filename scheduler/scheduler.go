// Package scheduler runs scrape cycles on a cron schedule with an
// in-progress guard: a cycle never overlaps itself.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule fires Monday and Wednesday evenings, shortly after the
// publication site's usual release window.
const DefaultSchedule = "5 23 * * MON,WED"

// Runner is the unit of work the scheduler triggers.
type Runner interface {
	RunCycle(ctx context.Context) error
}

// Scheduler drives a Runner from a cron expression and manual triggers.
type Scheduler struct {
	runner   Runner
	cron     *cron.Cron
	schedule string
	entryID  cron.EntryID
	logger   *slog.Logger

	mu      sync.Mutex // held while a cycle runs
	lastRun time.Time
	lastErr error
	runsMu  sync.Mutex // guards lastRun and lastErr
}

// Status reports scheduler state for the dashboard.
type Status struct {
	Schedule  string   `json:"schedule"`
	Running   bool     `json:"running"`
	LastRun   string   `json:"last_run,omitempty"`
	LastError string   `json:"last_error,omitempty"`
	NextRuns  []string `json:"next_runs"`
}

// New creates a scheduler for runner with the given cron expression.
func New(runner Runner, schedule string, logger *slog.Logger) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	s := &Scheduler{
		runner:   runner,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger,
	}
	entryID, err := s.cron.AddFunc(schedule, func() { s.run(context.Background()) })
	if err != nil {
		return nil, err
	}
	s.entryID = entryID
	return s, nil
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.schedule)
}

// Stop halts the cron loop and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	// Block until any in-flight cycle releases the lock.
	s.mu.Lock()
	s.mu.Unlock()
	s.logger.Info("scheduler stopped")
}

// TriggerNow starts a cycle immediately unless one is already running. It
// returns false when the trigger was rejected.
func (s *Scheduler) TriggerNow() bool {
	if !s.mu.TryLock() {
		return false
	}
	go func() {
		defer s.mu.Unlock()
		s.runLocked(context.Background())
	}()
	return true
}

// Running reports whether a cycle is currently in progress.
func (s *Scheduler) Running() bool {
	if s.mu.TryLock() {
		s.mu.Unlock()
		return false
	}
	return true
}

// Status snapshots the scheduler state. Next run times use the local
// timezone in the dashboard's display format.
func (s *Scheduler) Status() Status {
	st := Status{
		Schedule: s.schedule,
		Running:  s.Running(),
		NextRuns: []string{},
	}

	s.runsMu.Lock()
	if !s.lastRun.IsZero() {
		st.LastRun = s.lastRun.Format("02.01.2006 à 15:04")
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	s.runsMu.Unlock()

	next := s.cron.Entry(s.entryID).Next
	for i := 0; i < 3 && !next.IsZero(); i++ {
		st.NextRuns = append(st.NextRuns, next.Format("02.01.2006 à 15:04"))
		sched := s.cron.Entry(s.entryID).Schedule
		if sched == nil {
			break
		}
		next = sched.Next(next)
	}

	return st
}

func (s *Scheduler) run(ctx context.Context) {
	if !s.mu.TryLock() {
		s.logger.Warn("skipping scheduled cycle, previous cycle still running")
		return
	}
	defer s.mu.Unlock()
	s.runLocked(ctx)
}

func (s *Scheduler) runLocked(ctx context.Context) {
	start := time.Now()
	err := s.runner.RunCycle(ctx)

	s.runsMu.Lock()
	s.lastRun = start
	s.lastErr = err
	s.runsMu.Unlock()

	if err != nil {
		s.logger.Error("scrape cycle failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("scrape cycle finished", "duration", time.Since(start))
}
