// Package maintenance runs periodic housekeeping such as sweeping expired
// rate-limit windows and sampling runtime statistics.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrDuplicateJob = errors.New("job already scheduled")

// Job is a named unit of recurring work. Schedule accepts standard
// five-field cron expressions and descriptors such as "@every 5m".
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	jobs    map[string]cron.EntryID
	running bool
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	logger = logger.With(slog.String("component", "maintenance.scheduler"))
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{logger}), cron.SkipIfStillRunning(cronLogger{logger}))),
		logger: logger,
		jobs:   make(map[string]cron.EntryID),
	}
}

// Add registers job. Jobs run with ctx, so cancelling it aborts in-flight work.
// An empty schedule disables the job.
func (s *Scheduler) Add(ctx context.Context, job Job) error {
	if job.Schedule == "" {
		s.logger.Info("job schedule not configured, skipping", slog.String("job", job.Name))
		return nil
	}
	if _, err := cron.ParseStandard(job.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q for %s: %w", job.Schedule, job.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}

	id, err := s.cron.AddFunc(job.Schedule, func() { s.run(ctx, job) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
	}
	s.jobs[job.Name] = id
	return nil
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("scheduled job failed",
			slog.String("job", job.Name),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Debug("scheduled job completed",
		slog.String("job", job.Name),
		slog.Duration("took", time.Since(start)),
	)
}

// Start begins running jobs and stops the scheduler when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("maintenance scheduler started", slog.Int("jobs", len(s.jobs)))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("maintenance scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun reports when the named job fires next. The time is zero until
// the scheduler has started.
func (s *Scheduler) NextRun(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// cronLogger adapts slog to cron's logger for panic recovery and skips.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err.Error())...)
}
