// Package scheduler drives periodic fulfillment batch runs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// JobStatus represents the status of a batch run
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Trigger says what started a run
type Trigger string

const (
	TriggerInterval Trigger = "INTERVAL"
	TriggerManual   Trigger = "MANUAL"
)

// Job is the record of one batch run
type Job struct {
	RunID       string                       `json:"run_id,omitempty"`
	Trigger     Trigger                      `json:"trigger"`
	Status      JobStatus                    `json:"status"`
	Error       string                       `json:"error,omitempty"`
	StartedAt   time.Time                    `json:"started_at"`
	CompletedAt *time.Time                   `json:"completed_at,omitempty"`
	Summary     *appfulfillment.BatchSummary `json:"summary,omitempty"`
}

// BatchRunner executes one batch pass
type BatchRunner interface {
	Run(ctx context.Context) (*appfulfillment.BatchSummary, error)
}

// BatchScheduler runs the batch on a fixed interval with at most one run
// in flight. Ticks that arrive while a run is active are dropped.
type BatchScheduler struct {
	config config.SchedulerConfig
	runner BatchRunner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  bool
	last      *Job
}

// NewBatchScheduler validates cfg and creates a scheduler
func NewBatchScheduler(cfg config.SchedulerConfig, runner BatchRunner, logger *zap.Logger) (*BatchScheduler, error) {
	if cfg.BatchInterval <= 0 {
		return nil, fmt.Errorf("%w: batch interval must be positive", ErrInvalidConfig)
	}
	if cfg.RunTimeout < 0 {
		return nil, fmt.Errorf("%w: run timeout must not be negative", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchScheduler{config: cfg, runner: runner, logger: logger}, nil
}

// Start launches the interval loop. Starting twice is a no-op.
func (s *BatchScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Batch scheduler started",
		zap.Duration("interval", s.config.BatchInterval),
		zap.Duration("run_timeout", s.config.RunTimeout),
	)
	return nil
}

// Stop cancels the loop and any active run, then waits for both to exit or
// for ctx to expire
func (s *BatchScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("Batch scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Batch scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *BatchScheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.run(ctx, TriggerInterval); errors.Is(err, ErrRunInProgress) {
				s.logger.Warn("Skipping batch tick, previous run still active")
			}
		}
	}
}

// RunNow runs one batch synchronously on the caller's context. It fails
// with ErrRunInProgress when a run is already active.
func (s *BatchScheduler) RunNow(ctx context.Context) (*Job, error) {
	return s.run(ctx, TriggerManual)
}

// LastRun returns a copy of the most recent run record, or nil
func (s *BatchScheduler) LastRun() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	job := *s.last
	return &job
}

func (s *BatchScheduler) run(ctx context.Context, trigger Trigger) (*Job, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.inFlight = true
	job := &Job{Trigger: trigger, Status: JobStatusRunning, StartedAt: time.Now()}
	s.last = job
	s.mu.Unlock()
	defer s.finish(job)

	if s.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RunTimeout)
		defer cancel()
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "batch", "run", telemetry.WithAttribute("trigger", string(trigger)))
	defer span.End()

	var summary *appfulfillment.BatchSummary
	var err error
	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelOperation: "batch.run",
		"trigger":                         string(trigger),
	}, func(ctx context.Context) {
		summary, err = s.runner.Run(ctx)
	})
	telemetry.RecordError(span, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	job.CompletedAt = &now
	job.Summary = summary
	if summary != nil {
		job.RunID = summary.RunID
		telemetry.SetAttributes(span, telemetry.SpanAttrRunID, summary.RunID, "orders", summary.Orders)
	}
	if err != nil {
		job.Status = JobStatusFailed
		job.Error = err.Error()
		s.logger.Error("Batch run failed", zap.String("trigger", string(trigger)), zap.Error(err))
	} else {
		job.Status = JobStatusSuccess
	}
	out := *job
	return &out, err
}

// finish releases the in-flight slot. A run that never recorded an outcome
// (the runner panicked) is marked failed.
func (s *BatchScheduler) finish(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if job.Status == JobStatusRunning {
		now := time.Now()
		job.CompletedAt = &now
		job.Status = JobStatusFailed
		job.Error = "run aborted"
	}
}
