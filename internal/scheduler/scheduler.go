// Package scheduler drives the background jobs: the nightly ingest sweep,
// the hourly archive integrity check and the hourly feedback drain. Jobs
// are plain functions so tests can trigger them without waiting on the
// clock; overlapping ingest triggers are dropped by the ingest runner's
// own advisory lock.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Jobs holds the three scheduled tasks. Nil entries are skipped.
type Jobs struct {
	Ingest         func(ctx context.Context) error
	IntegrityCheck func(ctx context.Context) error
	FeedbackDrain  func(ctx context.Context) error
}

// Scheduler wraps a cron runner around the job set.
type Scheduler struct {
	cron *cron.Cron
	jobs Jobs
	ctx  context.Context
}

// hourlySpec fires at the top of every hour.
const hourlySpec = "0 * * * *"

// New builds a scheduler with the ingest sweep at ingestTime ("HH:MM",
// local clock) and the integrity check and feedback drain hourly.
func New(ingestTime string, jobs Jobs) (*Scheduler, error) {
	ingestSpec, err := cronSpec(ingestTime)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{cron: cron.New(), jobs: jobs}

	if jobs.Ingest != nil {
		if _, err := s.cron.AddFunc(ingestSpec, s.wrap("ingest", jobs.Ingest)); err != nil {
			return nil, fmt.Errorf("schedule ingest: %w", err)
		}
	}
	if jobs.IntegrityCheck != nil {
		if _, err := s.cron.AddFunc(hourlySpec, s.wrap("integrity", jobs.IntegrityCheck)); err != nil {
			return nil, fmt.Errorf("schedule integrity check: %w", err)
		}
	}
	if jobs.FeedbackDrain != nil {
		if _, err := s.cron.AddFunc(hourlySpec, s.wrap("feedback", jobs.FeedbackDrain)); err != nil {
			return nil, fmt.Errorf("schedule feedback drain: %w", err)
		}
	}
	return s, nil
}

// Run starts the timers and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	log.Printf("Scheduler running: %d jobs", len(s.cron.Entries()))
	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	log.Printf("Scheduler stopped")
}

// wrap turns a job into a cron callback that logs failures instead of
// propagating them: one bad run never kills the schedule.
func (s *Scheduler) wrap(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx := s.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		start := time.Now()
		if err := job(ctx); err != nil {
			log.Printf("Job %s failed after %v: %v", name, time.Since(start).Round(time.Millisecond), err)
			return
		}
		log.Printf("Job %s finished in %v", name, time.Since(start).Round(time.Millisecond))
	}
}

// cronSpec converts "HH:MM" into a daily cron expression.
func cronSpec(ingestTime string) (string, error) {
	parts := strings.Split(ingestTime, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid ingest time %q, want HH:MM", ingestTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid ingest hour %q", parts[0])
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid ingest minute %q", parts[1])
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
