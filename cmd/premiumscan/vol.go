package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/premiumscan/internal/adapters/notify"
	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/volatility"
)

var (
	volDays    int
	volHistory int
)

var volCmd = &cobra.Command{
	Use:   "vol SYMBOL",
	Short: "Historical volatility of a symbol with every estimator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := strings.ToUpper(args[0])
		bars, err := loadBars(cmd.Context(), symbol)
		if err != nil {
			return err
		}

		notify.PrintVolatility(os.Stdout, symbol, len(bars), volatility.Summarize(bars))

		method, window := cfg.HVMethod(), cfg.Volatility.Window
		line := fmt.Sprintf("Scanner HV (%s, %dd): ", method, window)
		if hv, ok := volatility.Estimate(method, bars, window, true); ok {
			line += fmt.Sprintf("%.1f%%", hv*100)
		} else {
			line += "N/A"
		}
		if p, ok := volatility.Percentile(bars.Closes(), window, cfg.Volatility.PercentileLookback); ok {
			line += fmt.Sprintf(" | percentile %.0f (lookback %d)", p, cfg.Volatility.PercentileLookback)
		}
		fmt.Println(line)

		if volHistory > 0 {
			notify.PrintHVHistory(os.Stdout, symbol, window, volatility.History(bars, window), volHistory)
		}
		return nil
	},
}

var coneWindows []int

var coneCmd = &cobra.Command{
	Use:   "cone SYMBOL",
	Short: "Volatility cone (min/p25/median/p75/max/current per window)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := strings.ToUpper(args[0])
		bars, err := loadBars(cmd.Context(), symbol)
		if err != nil {
			return err
		}
		windows := coneWindows
		if len(windows) == 0 {
			windows = cfg.Volatility.ConeWindows
		}
		notify.PrintCone(os.Stdout, symbol, volatility.Cone(bars.Closes(), windows))
		return nil
	},
}

func init() {
	volCmd.Flags().IntVar(&volDays, "days", 0, "bars to load (default: scanner.bars_days)")
	volCmd.Flags().IntVar(&volHistory, "history", 0, "also print the last N points of the rolling HV series")
	coneCmd.Flags().IntVar(&volDays, "days", 0, "bars to load (default: scanner.bars_days)")
	coneCmd.Flags().IntSliceVar(&coneWindows, "windows", nil, "cone windows in trading days (default: config)")
}

func loadBars(ctx context.Context, symbol string) (domain.PriceSeries, error) {
	days := volDays
	if days <= 0 {
		days = cfg.Scanner.BarsDays
	}
	_, provider, err := newProviders(cfg)
	if err != nil {
		return nil, err
	}
	bars, err := provider.FetchBars(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: no bars: %w", symbol, domain.ErrInsufficientData)
	}
	return bars, nil
}
