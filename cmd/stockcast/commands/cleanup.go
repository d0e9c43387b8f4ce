package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockcast/backend/internal/chart"
	"github.com/wonny/stockcast/backend/internal/scheduler"
	"github.com/wonny/stockcast/backend/internal/scheduler/jobs"
	"github.com/wonny/stockcast/backend/pkg/logger"
)

// cleanupCmd prunes chart artifacts once
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "오래된 차트 PNG 삭제",
	Long: `GRAPHS_DIR에서 보존 기간(GRAPHS_RETENTION)이 지난 차트를 삭제합니다.
API 서버에서는 chart_cleanup job이 같은 작업을 주기적으로 수행합니다.

Example:
  go run ./cmd/stockcast cleanup
  go run ./cmd/stockcast cleanup --older-than 1h`,
	RunE: runCleanup,
}

var cleanupOlderThan time.Duration

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 0, "보존 기간 (default: GRAPHS_RETENTION)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	retention := cfg.Graphs.Retention
	if cleanupOlderThan > 0 {
		retention = cleanupOlderThan
	}

	renderer, err := chart.New(cfg.Graphs.Dir, log.Component("chart"))
	if err != nil {
		return err
	}

	removed, err := pruneNow(renderer, retention, cfg.Graphs.CleanupSchedule, log)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Removed %d chart(s) older than %s from %s\n", removed, retention, renderer.Dir())
	return nil
}

// pruneNow runs the chart_cleanup job once through the scheduler (no retry)
func pruneNow(pruner jobs.ChartPruner, retention time.Duration, schedule string, log *logger.Logger) (int, error) {
	counter := &countingPruner{ChartPruner: pruner}
	job := jobs.NewChartCleanupJob(counter, retention, schedule, log)

	sched := scheduler.New(log, scheduler.WithRetry(0, 0))
	if err := sched.AddJob(job); err != nil {
		return 0, err
	}

	result, err := sched.RunNow(job.Name())
	if err != nil {
		return 0, err
	}
	if !result.Success {
		return counter.removed, fmt.Errorf("chart cleanup failed: %s", result.Error)
	}
	return counter.removed, nil
}

// countingPruner totals what the job removed for the CLI summary
type countingPruner struct {
	jobs.ChartPruner
	removed int
}

func (p *countingPruner) Prune(now time.Time, retention time.Duration) (int, error) {
	n, err := p.ChartPruner.Prune(now, retention)
	p.removed += n
	return n, err
}
