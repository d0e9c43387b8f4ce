package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/stockcast/backend/pkg/logger"
)

// Scheduler runs housekeeping and batch forecast jobs on cron schedules
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]entry
	history map[string]*JobHistory
	mu      sync.RWMutex

	// 실행 컨텍스트: Stop 시 취소
	ctx    context.Context
	cancel context.CancelFunc

	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
}

type entry struct {
	job Job
	id  cron.EntryID
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithRetry sets how often a failed run is retried and the pause between attempts
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(s *Scheduler) {
		s.maxRetries = maxRetries
		s.retryDelay = delay
	}
}

// WithTimeout bounds a single attempt
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// New creates a new scheduler. Jobs overlapping their previous run are skipped.
func New(log *logger.Logger, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger:     log,
		jobs:       make(map[string]entry),
		history:    make(map[string]*JobHistory),
		ctx:        ctx,
		cancel:     cancel,
		maxRetries: 1,
		retryDelay: time.Minute,
		timeout:    30 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entry{job: job, id: id}
	s.history[name] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      name,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them, bounded by ctx
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("Stopping scheduler")
	s.cancel()

	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
	}
}

// RunNow runs a registered job synchronously (CLI, tests)
func (s *Scheduler) RunNow(name string) (JobResult, error) {
	s.mu.RLock()
	e, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return JobResult{}, fmt.Errorf("job %s not found", name)
	}

	return s.runJob(e.job), nil
}

// runJob executes a job with retry logic
func (s *Scheduler) runJob(job Job) JobResult {
	name := job.Name()
	start := time.Now()
	log := s.logger.WithField("job", name)

	log.Info("Job started")

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		attempts++
		lastErr = s.attempt(job)
		if lastErr == nil || s.ctx.Err() != nil {
			break
		}

		log.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		}).Warn("Job execution failed")

		if attempt < s.maxRetries {
			select {
			case <-time.After(s.retryDelay):
			case <-s.ctx.Done():
			}
		}
	}

	end := time.Now()
	result := JobResult{
		JobName:   name,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Attempts:  attempts,
		Success:   lastErr == nil,
	}
	if lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if h, ok := s.history[name]; ok {
		h.AddResult(result)
	}
	s.mu.Unlock()

	if result.Success {
		log.WithField("duration", result.Duration).Info("Job completed successfully")
	} else {
		log.WithFields(map[string]interface{}{
			"duration": result.Duration,
			"error":    result.Error,
		}).Error("Job failed after all retries")
	}

	return result
}

// attempt runs the job once with the per-attempt timeout; panics become errors
func (s *Scheduler) attempt(job Job) (err error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()

	return job.Run(ctx)
}

// GetJobHistory returns the history for a specific job
func (s *Scheduler) GetJobHistory(name string) (*JobHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.history[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}

	cp := &JobHistory{Results: append([]JobResult(nil), h.Results...)}
	return cp, nil
}

// GetAllJobs returns all registered job names
func (s *Scheduler) GetAllJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// GetJobStats returns statistics for all scheduled jobs
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.jobs))
	for name, e := range s.jobs {
		h := s.history[name]
		st := JobStats{
			JobName:      name,
			Schedule:     e.job.Schedule(),
			TotalRuns:    len(h.Results),
			FailureCount: h.Failures(),
			SuccessRate:  h.SuccessRate(),
		}
		st.SuccessCount = st.TotalRuns - st.FailureCount
		if last, ok := h.Last(); ok {
			st.LastRun = &last.StartTime
			st.LastSuccess = last.Success
		}
		stats[name] = st
	}

	return stats
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  bool       `json:"last_success"`
}
