package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/stockcast/backend/internal/forecast"
)

// forecastCmd runs one prediction without the HTTP server
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "단일 종목 예측 실행 (JSON 출력)",
	Long: `두 모델을 학습하고 예측 결과를 /predict 응답과 같은 JSON으로 출력합니다.
진행 이벤트는 stderr로 출력됩니다.

Example:
  go run ./cmd/stockcast forecast --symbol AAPL
  go run ./cmd/stockcast forecast --symbol MSFT --days 14
  go run ./cmd/stockcast forecast --symbol AAPL --offline   # DB 아카이브 사용`,
	RunE: runForecast,
}

var (
	forecastSymbol  string
	forecastDays    int
	forecastOffline bool
)

func init() {
	rootCmd.AddCommand(forecastCmd)

	forecastCmd.Flags().StringVarP(&forecastSymbol, "symbol", "s", "", "종목 심볼 (예: AAPL)")
	forecastCmd.Flags().IntVarP(&forecastDays, "days", "d", 0, "예측 일수 (default: FORECAST_DEFAULT_DAYS)")
	forecastCmd.Flags().BoolVar(&forecastOffline, "offline", false, "Yahoo 대신 DB 아카이브에서 시세 조회")
	_ = forecastCmd.MarkFlagRequired("symbol")
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, log, appOptions{offline: forecastOffline})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	days := forecastDays
	if days == 0 {
		days = cfg.Forecast.DefaultDays
	}

	stderr := cmd.ErrOrStderr()
	result, err := a.service.Predict(ctx, forecast.Request{Symbol: forecastSymbol, ForecastDays: days},
		func(ev forecast.Event) {
			fmt.Fprintf(stderr, "[%s] %-9s %s %s\n", ev.Time.Format("15:04:05"), ev.Stage, ev.Model, ev.Message)
		})
	if err != nil {
		return err
	}

	return printJSON(cmd.OutOrStdout(), result)
}
