package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// profileCmd prints a company profile
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "기업 프로필 조회 (/stock-info와 동일)",
	Example: `  go run ./cmd/stockcast profile --symbol AAPL
  go run ./cmd/stockcast profile --symbol AAPL --refresh`,
	RunE: runProfile,
}

var (
	profileSymbol  string
	profileRefresh bool
)

func init() {
	rootCmd.AddCommand(profileCmd)

	profileCmd.Flags().StringVarP(&profileSymbol, "symbol", "s", "", "종목 심볼 (예: AAPL)")
	profileCmd.Flags().BoolVar(&profileRefresh, "refresh", false, "Redis 캐시를 무시하고 다시 조회")
	_ = profileCmd.MarkFlagRequired("symbol")
}

func runProfile(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, log, appOptions{})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	if profileRefresh {
		if err := a.profiles.Invalidate(ctx, profileSymbol); err != nil {
			log.WithError(err).Warn("Profile cache invalidation failed")
		}
	}

	profile, err := a.profiles.FetchProfile(ctx, profileSymbol)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), profile)
}
