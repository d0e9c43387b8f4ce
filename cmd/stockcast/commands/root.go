package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/stockcast/backend/pkg/config"
	"github.com/wonny/stockcast/backend/pkg/logger"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockcast",
	Short: "Stockcast - 주가 예측 백엔드 (LSTM + XGBoost hybrid)",
	Long: `Stockcast Unified CLI

일별 종가로 두 모델(순환신경망, gradient boosted trees)을 학습하고
N일 예측과 가중 평균(hybrid)을 제공하는 백엔드.

Usage:
  go run ./cmd/stockcast [command]

Examples:
  go run ./cmd/stockcast api
  go run ./cmd/stockcast forecast --symbol AAPL --days 7
  go run ./cmd/stockcast profile --symbol AAPL
  go run ./cmd/stockcast cleanup
  go run ./cmd/stockcast test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig loads env config and the logger shared by every command
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}
