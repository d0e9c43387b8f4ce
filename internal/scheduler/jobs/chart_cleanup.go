package jobs

import (
	"context"
	"time"

	"github.com/wonny/stockcast/backend/pkg/logger"
)

// ChartPruner deletes chart artifacts older than retention (chart.Renderer)
type ChartPruner interface {
	Prune(now time.Time, retention time.Duration) (int, error)
}

// ChartCleanupJob removes expired chart PNGs from GRAPHS_DIR
type ChartCleanupJob struct {
	pruner    ChartPruner
	retention time.Duration
	schedule  string
	now       func() time.Time
	logger    *logger.Logger
}

// NewChartCleanupJob creates a new chart cleanup job
func NewChartCleanupJob(pruner ChartPruner, retention time.Duration, schedule string, log *logger.Logger) *ChartCleanupJob {
	if schedule == "" {
		schedule = "0 0 * * * *" // hourly
	}
	return &ChartCleanupJob{
		pruner:    pruner,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name
func (j *ChartCleanupJob) Name() string {
	return "chart_cleanup"
}

// Schedule returns the cron schedule
func (j *ChartCleanupJob) Schedule() string {
	return j.schedule
}

// Run executes the cleanup
func (j *ChartCleanupJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	removed, err := j.pruner.Prune(j.now(), j.retention)
	if err != nil {
		return err
	}

	if removed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed":   removed,
			"retention": j.retention.String(),
		}).Info("Chart cleanup completed")
	}

	return nil
}
