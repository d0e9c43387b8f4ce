package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/backend/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32 // fail this many times before succeeding
	calls    atomic.Int32
	panics   bool
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if j.panics {
		panic("boom")
	}
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func TestAddJob(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@every 1h"}))
	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "@every 1h"}), "duplicate name")
	assert.Error(t, s.AddJob(&countingJob{name: "b", schedule: "not a cron"}))

	assert.Equal(t, []string{"a"}, s.GetAllJobs())
}

func TestRunNow_Retries(t *testing.T) {
	s := New(logger.Nop(), WithRetry(2, time.Millisecond))
	job := &countingJob{name: "flaky", schedule: "@every 1h", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunNow("flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)

	h, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, h.Results, 1)
}

func TestRunNow_FailsAfterRetries(t *testing.T) {
	s := New(logger.Nop(), WithRetry(1, time.Millisecond))
	require.NoError(t, s.AddJob(&countingJob{name: "broken", schedule: "@every 1h", failures: 10}))

	result, err := s.RunNow("broken")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, "transient", result.Error)

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.0, stats.SuccessRate)
	assert.False(t, stats.LastSuccess)
}

func TestRunNow_RecoversPanic(t *testing.T) {
	s := New(logger.Nop(), WithRetry(0, 0))
	require.NoError(t, s.AddJob(&countingJob{name: "p", schedule: "@every 1h", panics: true}))

	result, err := s.RunNow("p")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "panicked")
}

func TestRunNow_Unknown(t *testing.T) {
	s := New(logger.Nop())
	_, err := s.RunNow("missing")
	assert.Error(t, err)
}

func TestScheduledRun(t *testing.T) {
	s := New(logger.Nop())
	job := &countingJob{name: "tick", schedule: "@every 1s"}
	require.NoError(t, s.AddJob(job))

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return job.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestJobHistory_Limit(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyLimit+10; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}

	assert.Len(t, h.Results, historyLimit)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)

	last, ok := h.Last()
	require.True(t, ok)
	assert.False(t, last.Success)
}
