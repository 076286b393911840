package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/premiumscan/internal/adapters/csvfeed"
	"github.com/alejandrodnm/premiumscan/internal/adapters/notify"
	"github.com/alejandrodnm/premiumscan/internal/adapters/storage"
	"github.com/alejandrodnm/premiumscan/internal/domain"
)

var historyFlags struct {
	days int
	csv  bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Signals stored by previous scans, best score first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
		}
		defer store.Close()

		to := time.Now()
		from := to.AddDate(0, 0, -historyFlags.days)
		results, err := store.GetHistory(cmd.Context(), from, to)
		if err != nil {
			return err
		}

		if historyFlags.csv {
			signals := make([]domain.MispricingSignal, len(results))
			for i, r := range results {
				signals[i] = r.Signal
			}
			return csvfeed.WriteSignals(os.Stdout, signals)
		}
		notify.PrintHistory(os.Stdout, results)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyFlags.days, "days", 7, "days back to include")
	historyCmd.Flags().BoolVar(&historyFlags.csv, "csv", false, "write CSV instead of a table")
}
