package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/stockcast/backend/internal/api"
	"github.com/wonny/stockcast/backend/internal/api/handlers"
	"github.com/wonny/stockcast/backend/internal/scheduler"
	"github.com/wonny/stockcast/backend/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버와 스케줄러를 시작합니다.

Endpoints:
  GET  /health                 - Health check
  GET  /metrics                - Prometheus metrics (METRICS_ENABLED)
  POST /predict                - {symbol, forecast_days} → lstm/xgboost/hybrid 예측
  GET  /ws/predict             - 예측 진행 이벤트 스트림 (websocket)
  POST /stock-info             - {symbol} → 기업 프로필
  GET  /graph/{name}           - 차트 PNG
  GET  /api/forecasts/{symbol} - 예측 이력 (DATABASE_URL)

Example:
  go run ./cmd/stockcast api
  go run ./cmd/stockcast api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort     string
	noScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
	apiCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "스케줄러 비활성화")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Stockcast API Server ===")

	// 1. Load config
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Wire dependencies
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, log, appOptions{})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	// 3. Handlers
	h := api.Handlers{
		Predict: handlers.NewPredictHandler(a.service, cfg.Forecast.DefaultDays, log),
		Stock:   handlers.NewStockHandler(a.profiles, log),
		Graph:   handlers.NewGraphHandler(a.renderer),
		Health: map[string]api.HealthCheck{
			"redis": a.redis.HealthCheck,
		},
	}
	if a.runs != nil {
		h.History = handlers.NewHistoryHandler(a.runs, log)
		h.Health["database"] = a.db.Ping
	} else {
		h.History = handlers.NewHistoryHandler(nil, log)
	}
	if a.metrics != nil {
		h.Metrics = a.metrics
	}

	// 4. Scheduler
	var sched *scheduler.Scheduler
	if !noScheduler {
		sched, err = newScheduler(a)
		if err != nil {
			return err
		}
		sched.Start()
	}

	// 5. Server
	server := api.New(cfg, log, api.NewRouter(h, log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a listen failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// newScheduler registers chart cleanup and, with a watchlist, the batch forecast
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log, scheduler.WithRetry(1, time.Minute))

	cleanup := jobs.NewChartCleanupJob(a.renderer, a.cfg.Graphs.Retention, a.cfg.Graphs.CleanupSchedule, a.log)
	if err := sched.AddJob(cleanup); err != nil {
		return nil, err
	}

	if len(a.cfg.Forecast.Watchlist) > 0 {
		batch := jobs.NewWatchlistForecastJob(a.service, a.cfg.Forecast.Watchlist,
			a.cfg.Forecast.DefaultDays, a.cfg.Forecast.Schedule, a.log)
		if err := sched.AddJob(batch); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
