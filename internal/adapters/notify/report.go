package notify

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/pricing"
	"github.com/alejandrodnm/premiumscan/internal/scoring"
	"github.com/alejandrodnm/premiumscan/internal/volatility"
)

// Reportes de los subcomandos de consulta (price, vol, cone, chain, history).

// PrintQuote imprime el precio teórico y las Greeks de una opción.
func PrintQuote(w io.Writer, in pricing.Inputs, price float64, g domain.OptionGreeks, provider string) {
	fmt.Fprintf(w, "%s %.2f | spot $%.2f | T %.4fy | σ %.1f%% | r %.2f%% | provider %s\n",
		in.Side, in.Strike, in.Spot, in.T, in.Sigma*100, in.Rate*100, provider)

	table := tablewriter.NewWriter(w)
	table.Header("Price", "Delta", "Gamma", "Theta/day", "Vega/1%", "Rho/1%")
	table.Append(
		fmt.Sprintf("$%.4f", price),
		fmt.Sprintf("%.4f", g.Delta),
		fmt.Sprintf("%.4f", g.Gamma),
		fmt.Sprintf("%.4f", g.Theta),
		fmt.Sprintf("%.4f", g.Vega),
		fmt.Sprintf("%.4f", g.Rho),
	)
	table.Render()
}

// PrintRisk imprime probabilidad de beneficio y riesgo/beneficio de vender la opción.
func PrintRisk(w io.Writer, pop float64, rr scoring.RiskReward) {
	ratio := "∞"
	if !math.IsInf(rr.Ratio, 1) {
		ratio = fmt.Sprintf("%.2f", rr.Ratio)
	}
	fmt.Fprintf(w, "Short: POP %.1f%% | max profit $%.2f | max loss $%.2f | ratio %s | breakeven $%.2f\n",
		pop*100, rr.MaxProfit, rr.MaxLoss, ratio, rr.Breakeven)
}

// PrintVolatility imprime el resumen de volatilidad de un subyacente.
func PrintVolatility(w io.Writer, symbol string, bars int, s volatility.Summary) {
	fmt.Fprintf(w, "%s | %d bars\n", symbol, bars)

	windows := make([]int, 0, len(s.ByWindow))
	for win := range s.ByWindow {
		windows = append(windows, win)
	}
	sort.Ints(windows)

	table := tablewriter.NewWriter(w)
	table.Header("Estimator", "Window", "Annualized")
	for _, win := range windows {
		table.Append(string(volatility.MethodStandard), fmt.Sprintf("%d", win), formatVol(s.ByWindow[win]))
	}
	for _, m := range volatility.Methods {
		v, ok := s.ByMethod[m]
		if !ok {
			continue
		}
		table.Append(string(m), fmt.Sprintf("%d", volatility.MediumWindow), formatVol(v))
	}
	table.Render()

	if s.Percentile != nil {
		fmt.Fprintf(w, "HV percentile (%dd vs %dd): %.0f\n", volatility.MediumWindow, volatility.DefaultLookback, *s.Percentile)
	} else {
		fmt.Fprintf(w, "HV percentile: N/A (need %d bars)\n", volatility.DefaultLookback)
	}
}

// PrintCone imprime el cono de volatilidad.
func PrintCone(w io.Writer, symbol string, rows []volatility.ConeRow) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "%s: not enough history for a volatility cone\n", symbol)
		return
	}
	fmt.Fprintf(w, "%s volatility cone\n", symbol)

	table := tablewriter.NewWriter(w)
	table.Header("Window", "Min", "P25", "Median", "P75", "Max", "Current")
	for _, r := range rows {
		table.Append(
			fmt.Sprintf("%d", r.Window),
			formatVol(r.Min),
			formatVol(r.P25),
			formatVol(r.Median),
			formatVol(r.P75),
			formatVol(r.Max),
			formatVol(r.Current),
		)
	}
	table.Render()
}

// PrintHVHistory imprime los últimos last puntos de la serie de HV móvil; last <= 0 = todos.
func PrintHVHistory(w io.Writer, symbol string, window int, points []volatility.Point, last int) {
	if len(points) == 0 {
		fmt.Fprintf(w, "%s: not enough history for a %dd HV series\n", symbol, window)
		return
	}
	if last > 0 && len(points) > last {
		points = points[len(points)-last:]
	}
	fmt.Fprintf(w, "%s rolling HV (%dd)\n", symbol, window)

	table := tablewriter.NewWriter(w)
	table.Header("Date", "HV")
	for _, p := range points {
		table.Append(p.Date.Format("2006-01-02"), formatVol(p.Value))
	}
	table.Render()
}

// PrintChain imprime filas de la cadena tal como las entrega el proveedor.
func PrintChain(w io.Writer, symbol string, rows []domain.ChainRow, now time.Time) {
	if len(rows) == 0 {
		fmt.Fprintf(w, "%s: no chain rows match\n", symbol)
		return
	}
	fmt.Fprintf(w, "%s option chain | %d rows\n", symbol, len(rows))

	table := tablewriter.NewWriter(w)
	table.Header("Side", "Strike", "Expiry", "DTE", "Bid", "Ask", "Spread", "IV", "Delta", "OI")
	for _, r := range rows {
		dte := "-"
		if d, err := r.DTE(now); err == nil {
			dte = FormatDTE(d)
		}
		table.Append(
			r.Side.String(),
			fmt.Sprintf("%.2f", r.Strike),
			formatExpiry(r.Expiry),
			dte,
			fmt.Sprintf("%.2f", r.Bid),
			fmt.Sprintf("%.2f", r.Ask),
			fmt.Sprintf("%.1f%%", r.SpreadPercent()),
			formatOptional(r.IV, "%.3f"),
			formatOptional(r.Delta, "%.3f"),
			fmt.Sprintf("%d", r.OpenInterest),
		)
	}
	table.Render()
}

// PrintHistory imprime señales persistidas, en el orden recibido.
func PrintHistory(w io.Writer, results []domain.ScanResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No stored signals in range")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Scanned", "Symbol", "Side", "Strike", "Expiry", "IV/HV", "Dev", "Score")
	for _, r := range results {
		sig := r.Signal
		table.Append(
			r.ScannedAt.Local().Format("2006-01-02 15:04"),
			sig.Symbol,
			sig.Side.String(),
			fmt.Sprintf("%.2f", sig.Strike),
			formatExpiry(sig.Expiry),
			FormatIVHV(sig.IVHVRatio),
			formatPct(sig.PriceDeviationPct),
			FormatScore(sig.Score),
		)
	}
	table.Render()
}

func formatVol(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
