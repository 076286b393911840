package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/premiumscan/internal/adapters/notify"
	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/mispricing"
)

var chainFlags struct {
	side      string
	minDelta  float64
	maxDelta  float64
	minBid    float64
	maxSpread float64
}

var chainCmd = &cobra.Command{
	Use:     "chain SYMBOL",
	Short:   "Print the option chain, optionally pre-filtered by delta, bid and spread",
	Example: `  premiumscan chain AAPL --side put --min-delta 0.2 --max-delta 0.3 --min-bid 0.5 --max-spread 10`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := strings.ToUpper(args[0])
		chains, _, err := newProviders(cfg)
		if err != nil {
			return err
		}
		rows, err := chains.FetchChain(cmd.Context(), symbol)
		if err != nil {
			return err
		}
		rows, err = filterChain(rows, cmd.Flags().Changed("min-delta") || cmd.Flags().Changed("max-delta"))
		if err != nil {
			return err
		}
		notify.PrintChain(os.Stdout, symbol, rows, time.Now())
		return nil
	},
}

func init() {
	f := chainCmd.Flags()
	f.StringVar(&chainFlags.side, "side", "", "CALL or PUT (default: both)")
	f.Float64Var(&chainFlags.minDelta, "min-delta", 0, "minimum |delta|; rows without delta are dropped when a delta bound is set")
	f.Float64Var(&chainFlags.maxDelta, "max-delta", 1, "maximum |delta|")
	f.Float64Var(&chainFlags.minBid, "min-bid", 0, "minimum bid")
	f.Float64Var(&chainFlags.maxSpread, "max-spread", 0, "maximum bid/ask spread in % of mid (0 = no limit)")
}

// filterChain aplica los pre-filtros de los flags en orden: lado, delta, bid, spread.
func filterChain(rows []domain.ChainRow, byDelta bool) ([]domain.ChainRow, error) {
	if chainFlags.side != "" {
		side, err := domain.ParseOptionSide(chainFlags.side)
		if err != nil {
			return nil, err
		}
		kept := rows[:0:0]
		for _, r := range rows {
			if r.Side == side {
				kept = append(kept, r)
			}
		}
		rows = kept
	}
	if byDelta {
		if chainFlags.minDelta > chainFlags.maxDelta {
			return nil, fmt.Errorf("--min-delta %g > --max-delta %g: %w", chainFlags.minDelta, chainFlags.maxDelta, domain.ErrInvalidInput)
		}
		rows = mispricing.FilterByDelta(rows, chainFlags.minDelta, chainFlags.maxDelta)
	}
	if chainFlags.minBid > 0 {
		rows = mispricing.FilterByPremium(rows, chainFlags.minBid)
	}
	if chainFlags.maxSpread > 0 {
		rows = mispricing.FilterByLiquidity(rows, chainFlags.maxSpread)
	}
	return rows, nil
}
