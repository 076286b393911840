package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/premiumscan/internal/adapters/notify"
	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/pricing"
	"github.com/alejandrodnm/premiumscan/internal/scoring"
)

// optionFlags son los flags comunes a price e iv.
type optionFlags struct {
	spot        float64
	strike      float64
	dte         int
	expiry      string
	side        string
	rate        float64
	tradingDays bool
}

func (o *optionFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&o.spot, "spot", 0, "underlying price")
	f.Float64Var(&o.strike, "strike", 0, "strike price")
	f.IntVar(&o.dte, "dte", 0, "days to expiry")
	f.StringVar(&o.expiry, "expiry", "", "expiry date YYYYMMDD (instead of --dte)")
	f.StringVar(&o.side, "side", "call", "call|put")
	f.Float64Var(&o.rate, "rate", -1, "risk-free rate (default: config)")
	f.BoolVar(&o.tradingDays, "trading-days", false, "convert days to years with 252 instead of 365")
	_ = cmd.MarkFlagRequired("spot")
	_ = cmd.MarkFlagRequired("strike")
	cmd.MarkFlagsMutuallyExclusive("dte", "expiry")
}

// inputs construye las Inputs de pricing; sigma la rellena el llamador.
func (o *optionFlags) inputs(now time.Time) (pricing.Inputs, int, error) {
	side, err := domain.ParseOptionSide(o.side)
	if err != nil {
		return pricing.Inputs{}, 0, err
	}
	dte := o.dte
	if o.expiry != "" {
		if dte, err = domain.DaysToExpiry(o.expiry, now); err != nil {
			return pricing.Inputs{}, 0, err
		}
	}
	rate := o.rate
	if rate < 0 {
		rate = cfg.Pricing.RiskFreeRate
	}
	in := pricing.Inputs{
		Spot:   o.spot,
		Strike: o.strike,
		T:      pricing.DaysToYears(dte, o.tradingDays),
		Side:   side,
		Rate:   rate,
	}
	if err := in.Validate(); err != nil {
		return pricing.Inputs{}, 0, err
	}
	return in, dte, nil
}

var (
	priceOpts optionFlags
	priceIV   float64
)

var priceCmd = &cobra.Command{
	Use:     "price",
	Short:   "Black-Scholes price, Greeks and short-premium risk of one option",
	Example: "  premiumscan price --spot 185 --strike 180 --dte 30 --iv 0.25 --side put",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		in, dte, err := priceOpts.inputs(time.Now())
		if err != nil {
			return err
		}
		in.Sigma = priceIV

		price := engine.Price(in)
		notify.PrintQuote(os.Stdout, in, price, engine.Greeks(in), engine.Provider().Name())

		pop := scoring.ProbabilityOfProfit(engine, in.Spot, in.Strike, in.Sigma, dte, in.Side)
		notify.PrintRisk(os.Stdout, pop, scoring.CalculateRiskReward(price, in.Strike, in.Spot, in.Side))
		return nil
	},
}

var (
	ivOpts  optionFlags
	ivPrice float64
)

var ivCmd = &cobra.Command{
	Use:     "iv",
	Short:   "Implied volatility of an option from its market price",
	Example: "  premiumscan iv --price 2.83 --spot 185 --strike 180 --dte 30 --side put",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		in, _, err := ivOpts.inputs(time.Now())
		if err != nil {
			return err
		}

		iv, err := engine.ImpliedVolatility(ivPrice, in)
		if errors.Is(err, domain.ErrNoConvergence) {
			fmt.Println("IV: N/A (solver did not converge)")
			return err
		}
		if err != nil {
			return err
		}
		in.Sigma = iv
		fmt.Printf("IV: %.2f%% (provider %s)\n", iv*100, engine.Provider().Name())
		notify.PrintQuote(os.Stdout, in, engine.Price(in), engine.Greeks(in), engine.Provider().Name())
		return nil
	},
}

func init() {
	priceOpts.register(priceCmd)
	priceCmd.Flags().Float64Var(&priceIV, "iv", 0.20, "volatility (decimal)")

	ivOpts.register(ivCmd)
	ivCmd.Flags().Float64Var(&ivPrice, "price", 0, "option market price")
	_ = ivCmd.MarkFlagRequired("price")
}
