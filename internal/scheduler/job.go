package scheduler

import (
	"context"
	"time"
)

// historyLimit caps the results kept per job
const historyLimit = 100

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds field first
	// Examples: "0 0 * * * *" (hourly), "0 30 18 * * 1-5", "@every 1h"
	Schedule() string
}

// JobResult represents the result of a job execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory stores the most recent executions of one job
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest beyond historyLimit
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}
}

// Last returns the most recent result; ok is false before the first run
func (h *JobHistory) Last() (JobResult, bool) {
	if len(h.Results) == 0 {
		return JobResult{}, false
	}
	return h.Results[len(h.Results)-1], true
}

// Failures counts failed runs
func (h *JobHistory) Failures() int {
	n := 0
	for _, r := range h.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// SuccessRate returns the success rate (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	return float64(len(h.Results)-h.Failures()) / float64(len(h.Results))
}
