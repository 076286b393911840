package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/premiumscan/internal/adapters/csvfeed"
	"github.com/alejandrodnm/premiumscan/internal/adapters/notify"
	"github.com/alejandrodnm/premiumscan/internal/adapters/storage"
	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/mispricing"
	"github.com/alejandrodnm/premiumscan/internal/ports"
	"github.com/alejandrodnm/premiumscan/internal/pricing"
	"github.com/alejandrodnm/premiumscan/internal/scanner"
	"github.com/alejandrodnm/premiumscan/internal/scoring"
)

var scanFlags struct {
	once      bool
	compact   bool
	noStore   bool
	out       string
	symbols   []string
	rules     []string
	maxSpread float64
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the watchlist for overpriced options to sell",
	Example: `  premiumscan scan --once
  premiumscan scan --symbols AAPL,MSFT --rule min_dte=14 --rule max_delta=0.3 --out signals.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScan()
	},
}

func init() {
	f := scanCmd.Flags()
	f.BoolVar(&scanFlags.once, "once", false, "run one scan cycle and exit")
	f.BoolVar(&scanFlags.compact, "compact", false, "print one line per symbol instead of tables")
	f.BoolVar(&scanFlags.noStore, "no-store", false, "do not persist scan results")
	f.StringVar(&scanFlags.out, "out", "", "also write each scan's signals to this CSV file")
	f.StringSliceVar(&scanFlags.symbols, "symbols", nil, "symbols to scan (overrides config)")
	f.StringArrayVar(&scanFlags.rules, "rule", nil, "override a threshold rule, e.g. min_dte=14 (repeatable)")
	f.Float64Var(&scanFlags.maxSpread, "max-spread", 0, "drop rows whose bid/ask spread exceeds this % of mid (overrides config)")
}

func runScan() error {
	if len(scanFlags.symbols) > 0 {
		cfg.Scanner.Symbols = scanFlags.symbols
	}

	engine, err := newEngine()
	if err != nil {
		return err
	}

	detector := mispricing.NewDetector(engine, cfg.ThresholdRules(), mispricing.WithWorkers(cfg.Scanner.Workers))
	if len(scanFlags.rules) > 0 {
		update, err := parseRuleFlags(scanFlags.rules)
		if err != nil {
			return err
		}
		if err := detector.UpdateRules(update); err != nil {
			return fmt.Errorf("apply --rule: %w", err)
		}
	}
	scorer := scoring.NewScorer(cfg.ScoringWeights())

	sides, err := cfg.OptionSides()
	if err != nil {
		return err
	}

	slog.Info("premiumscan starting",
		"config", configPath,
		"symbols", strings.Join(cfg.Scanner.Symbols, ","),
		"interval", cfg.ScanInterval(),
		"once", scanFlags.once,
		"provider", engine.Provider().Name(),
		"hv_method", cfg.HVMethod(),
		"source", cfg.Data.Source,
	)

	chains, bars, err := newProviders(cfg)
	if err != nil {
		return err
	}

	var store ports.Storage
	if !scanFlags.noStore {
		sqlite, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
		}
		defer sqlite.Close()
		store = sqlite
	}

	notifier := notify.Multi{notify.NewConsole(scanFlags.compact)}
	if scanFlags.out != "" {
		notifier = append(notifier, csvfeed.NewExporter(scanFlags.out))
	}

	scanCfg := scanner.DefaultConfig()
	scanCfg.Symbols = cfg.Scanner.Symbols
	scanCfg.ScanInterval = cfg.ScanInterval()
	scanCfg.Once = scanFlags.once
	scanCfg.TopN = cfg.Scanner.TopN
	scanCfg.MinScore = cfg.Scanner.MinScore
	scanCfg.Sides = sides
	scanCfg.BarsDays = cfg.Scanner.BarsDays
	scanCfg.HVMethod = cfg.HVMethod()
	scanCfg.HVWindow = cfg.Volatility.Window
	scanCfg.RequestsPerSecond = cfg.Scanner.RequestsPerSecond
	scanCfg.MarketHoursOnly = cfg.Scanner.MarketHoursOnly
	scanCfg.MaxSpreadPct = cfg.Scanner.MaxSpreadPct
	if scanFlags.maxSpread > 0 {
		scanCfg.MaxSpreadPct = scanFlags.maxSpread
	}

	var opts []scanner.Option
	if cfg.Scanner.BackfillIV {
		opts = append(opts, scanner.WithIVBackfill(engine))
	}

	s := scanner.New(scanCfg, chains, bars, store, notifier, detector, scorer, opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		return fmt.Errorf("scanner exited with error: %w", err)
	}
	slog.Info("premiumscan stopped cleanly")
	return nil
}

// newEngine selecciona el provider configurado y construye el engine de pricing.
func newEngine() (*pricing.Engine, error) {
	provider, err := pricing.Select(cfg.Pricing.Provider)
	if err != nil {
		return nil, err
	}
	return pricing.NewEngine(provider, cfg.Pricing.RiskFreeRate), nil
}

// parseRuleFlags convierte pares "nombre=valor" en una actualización tipada de reglas.
func parseRuleFlags(pairs []string) (domain.RulesUpdate, error) {
	values := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return domain.RulesUpdate{}, fmt.Errorf("--rule %q: expected name=value: %w", pair, domain.ErrInvalidRule)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return domain.RulesUpdate{}, fmt.Errorf("--rule %q: %w", pair, domain.ErrInvalidRule)
		}
		values[strings.TrimSpace(name)] = v
	}
	return domain.ParseRulesUpdate(values)
}
