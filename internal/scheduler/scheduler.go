// Package scheduler runs a job on a cron schedule, skipping a tick while the
// previous run is still in progress.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pricing-engine/internal/logging"
	"pricing-engine/internal/observability"
)

// DefaultSpec runs daily at 02:30, a low-traffic window. Six fields, seconds first.
const DefaultSpec = "0 30 2 * * *"

// Scheduler triggers a job on a cron spec.
type Scheduler struct {
	cron   *cron.Cron
	job    Job
	spec   string
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	history []JobResult

	// Retry configuration
	maxRetries int
	retryDelay time.Duration

	// base is cancelled by Stop so an in-flight run is aborted.
	base   context.Context
	cancel context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRetries retries a failed run up to n times, waiting delay between attempts.
func WithRetries(n int, delay time.Duration) Option {
	return func(s *Scheduler) {
		s.maxRetries = n
		s.retryDelay = delay
	}
}

// WithLocation evaluates the cron expression in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.cron = cron.New(cron.WithSeconds(), cron.WithLocation(loc), cron.WithLogger(cronLogger{s.logger}))
	}
}

// New creates a scheduler for job. An empty spec means DefaultSpec.
func New(job Job, spec string, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler: job is required")
	}
	if spec == "" {
		spec = DefaultSpec
	}
	logger = logging.OrNop(logger)
	logger = logger.With(zap.String("job", job.Name()))

	s := &Scheduler{
		job:    job,
		spec:   spec,
		logger: logger,
	}
	s.cron = cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC), cron.WithLogger(cronLogger{logger}))
	for _, opt := range opts {
		opt(s)
	}
	s.base, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(spec, s.Trigger); err != nil {
		return nil, fmt.Errorf("failed to schedule job %s with %q: %w", job.Name(), spec, err)
	}
	return s, nil
}

// Spec returns the cron expression.
func (s *Scheduler) Spec() string { return s.spec }

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.String("spec", s.spec), zap.Time("next", s.Next()))
}

// Stop cancels an in-flight run and waits for it to return.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// Next returns the next scheduled time, zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Running reports whether a run is in progress.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// History returns the most recent results, oldest first.
func (s *Scheduler) History() []JobResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]JobResult(nil), s.history...)
}

// Trigger is the cron callback; see TryRun.
func (s *Scheduler) Trigger() {
	s.TryRun()
}

// TryRun runs the job synchronously. Returns false if another run was in progress.
func (s *Scheduler) TryRun() bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Previous run still in progress, skipping")
		observability.RecordScheduledRunSkipped()
		return false
	}
	s.running = true
	s.mu.Unlock()

	result := s.runJob()

	s.mu.Lock()
	s.running = false
	s.history = append(s.history, result)
	if len(s.history) > maxHistory {
		s.history = s.history[len(s.history)-maxHistory:]
	}
	s.mu.Unlock()
	return true
}

// runJob executes the job with retry logic.
func (s *Scheduler) runJob() JobResult {
	start := time.Now()
	s.logger.Info("Job started")

	var lastErr error
retry:
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if lastErr = s.job.Run(s.base); lastErr == nil {
			break
		}
		s.logger.Warn("Job execution failed",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))

		if attempt < s.maxRetries {
			select {
			case <-time.After(s.retryDelay):
			case <-s.base.Done():
				break retry
			}
		}
	}

	result := JobResult{
		JobName:   s.job.Name(),
		StartTime: start,
		Duration:  time.Since(start),
		Success:   lastErr == nil,
	}
	if lastErr != nil {
		result.Error = lastErr.Error()
		s.logger.Error("Job failed", zap.Duration("duration", result.Duration), zap.Error(lastErr))
	} else {
		s.logger.Info("Job completed successfully", zap.Duration("duration", result.Duration))
	}
	return result
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().With(zap.Error(err)).Errorw(msg, keysAndValues...)
}
