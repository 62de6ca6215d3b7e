// Package jobs runs the periodic maintenance work of the API on a cron schedule.
package jobs

import (
	"context" // Request scoped context
	"fmt"     // String formatting
	"sync"    // Mutex
	"time"    // Timestamps and durations

	"qic_life/internal/metrics" // Prometheus collectors
	"qic_life/internal/service" // Business services

	"github.com/robfig/cron/v3"  // Cron scheduler
	"github.com/sirupsen/logrus" // Logging library
)

// Job names
const (
	MissionExpiry = "mission_expiry"
	StreakReset   = "streak_reset"
)

const defaultTimeout = 5 * time.Minute

// Func does one unit of work and reports how many rows it touched
type Func func(ctx context.Context) (int64, error)

// Scheduler runs named jobs on cron specs, never overlapping a job with itself
type Scheduler struct {
	cron    *cron.Cron       // Underlying cron runner
	metrics *metrics.Metrics // Job run counters
	timeout time.Duration    // Deadline per run

	mu   sync.Mutex      // Guards jobs
	jobs map[string]Func // Registered jobs by name
}

// New builds an idle scheduler; a nil metrics disables instrumentation
func New(m *metrics.Metrics) *Scheduler {
	logger := cronLogger{entry: logrus.WithField("component", "cron")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),                                               // Cron logs through logrus
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)), // Survive panics, never overlap
		),
		metrics: m,                     // May be nil
		timeout: defaultTimeout,        // Per run deadline
		jobs:    make(map[string]Func), // Empty registry
	}
}

// Add schedules fn under name; an empty spec registers the job without scheduling it
func (s *Scheduler) Add(name, spec string, fn Func) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %s is already registered", name)
	}
	// Schedule only when a spec is given
	if spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.run(name, fn) }); err != nil {
			return fmt.Errorf("job %s: invalid schedule %q: %w", name, spec, err)
		}
	}
	s.jobs[name] = fn
	return nil
}

// RunNow runs a registered job synchronously
func (s *Scheduler) RunNow(name string) (int64, error) {
	s.mu.Lock()
	fn, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("unknown job %s", name)
	}
	return s.run(name, fn)
}

func (s *Scheduler) run(name string, fn Func) (int64, error) {
	// Bound the run
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	// Run and record the outcome
	start := time.Now()
	n, err := fn(ctx)
	s.metrics.JobRun(name, err)
	fields := logrus.Fields{
		"job":      name,                       // Job name
		"rows":     n,                          // Rows touched
		"duration": time.Since(start).String(), // Run time
	}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Error("Job failed")
		return n, err
	}
	logrus.WithFields(fields).Info("Job finished")
	return n, nil
}

// Start begins running the schedule in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs up to ctx's deadline
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop() // No new runs after this
	select {
	case <-done.Done():
	case <-ctx.Done():
		logrus.Warn("Jobs still running at shutdown")
	}
}

// Register adds the mission expiry and streak reset jobs
func Register(s *Scheduler, svc *service.Services, expirySpec, streakSpec string) error {
	if err := s.Add(MissionExpiry, expirySpec, svc.Missions.ExpireOverdue); err != nil {
		return err
	}
	return s.Add(StreakReset, streakSpec, svc.Profile.ResetBrokenStreaks)
}

// cronLogger routes cron's own messages to logrus
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.entry.WithFields(toFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.entry.WithFields(toFields(keysAndValues)).WithError(err).Error(msg)
}

func toFields(kv []any) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 { // Pairs of key and value
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
