package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/scoring"
)

// Console implementa ports.Notifier.
type Console struct {
	out     io.Writer
	now     func() time.Time
	compact bool
}

// NewConsole crea un notificador que escribe a stdout.
// compact imprime una línea por símbolo en lugar de la tabla.
func NewConsole(compact bool) *Console {
	return &Console{out: os.Stdout, now: time.Now, compact: compact}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, now func() time.Time) *Console {
	return &Console{out: w, now: now}
}

// Notify imprime el output en el modo configurado.
func (c *Console) Notify(_ context.Context, scan domain.Scan) error {
	stamp := scan.StartedAt.Format("15:04:05")
	signals := scan.Signals()

	if scan.Market != "" {
		fmt.Fprintf(c.out, "[%s] %s\n", stamp, scan.Market)
	}
	if len(signals) == 0 {
		fmt.Fprintf(c.out, "[%s] No opportunities found (%d symbols)\n", stamp, len(scan.Symbols))
		c.printErrors(scan)
		return nil
	}

	if c.compact {
		c.printCompact(scan)
	} else {
		for _, sym := range scan.Symbols {
			c.printSymbol(sym)
		}
	}
	c.printErrors(scan)
	c.printSummary(signals)
	return nil
}

// printCompact imprime lo esencial: una línea por símbolo con sus 3 mejores.
func (c *Console) printCompact(scan domain.Scan) {
	now := c.now()
	for _, sym := range scan.Symbols {
		if len(sym.Signals) == 0 {
			continue
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "%-6s HV %s → %d", sym.Symbol, hvLabel(sym), len(sym.Signals))
		for i, sig := range sym.Signals {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&sb, " | %s %.0f %s %s %s",
				sig.Side, sig.Strike, FormatDTE(signalDTE(sig, now)),
				FormatIVHV(sig.IVHVRatio), FormatScore(sig.Score))
		}
		fmt.Fprintln(c.out, sb.String())
	}
}

// printSymbol imprime la tabla de un símbolo.
func (c *Console) printSymbol(sym domain.SymbolScan) {
	if len(sym.Signals) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n%s @ $%.2f | HV %s (%s) | %d/%d options\n",
		sym.Symbol, sym.UnderlyingPrice, hvLabel(sym), sym.HVMethod, len(sym.Signals), sym.ChainRows)

	now := c.now()
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Side", "Strike", "Expiry", "DTE", "Market", "Model", "Dev", "IV/HV", "Delta", "Theta", "Score")
	for i, sig := range sym.Signals {
		table.Append(
			fmt.Sprintf("%d", i+1),
			sig.Side.String(),
			fmt.Sprintf("%.2f", sig.Strike),
			formatExpiry(sig.Expiry),
			FormatDTE(signalDTE(sig, now)),
			fmt.Sprintf("$%.2f", sig.MarketPrice),
			fmt.Sprintf("$%.2f", sig.ModelPrice),
			formatPct(sig.PriceDeviationPct),
			FormatIVHV(sig.IVHVRatio),
			formatOptional(sig.Delta, "%.2f"),
			formatOptional(sig.Theta, "%.3f"),
			FormatScore(sig.Score),
		)
	}
	table.Render()

	// Razones del mejor candidato
	if best := sym.Signals[0]; len(best.Signals) > 0 {
		fmt.Fprintf(c.out, "  #1: %s\n", strings.Join(best.Signals, " · "))
	}
}

func hvLabel(sym domain.SymbolScan) string {
	if sym.HV == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", *sym.HV*100)
}

// printErrors lista los símbolos que fallaron.
func (c *Console) printErrors(scan domain.Scan) {
	for _, sym := range scan.Symbols {
		if sym.Err != nil {
			fmt.Fprintf(c.out, "  ⚠ %s: %v\n", sym.Symbol, sym.Err)
		}
	}
}

// printSummary imprime el resumen agregado del scan.
func (c *Console) printSummary(signals []domain.MispricingSignal) {
	s := scoring.GenerateSummary(signals)

	sides := make([]string, 0, len(s.BySide))
	for side, n := range s.BySide {
		sides = append(sides, fmt.Sprintf("%s:%d", side, n))
	}
	sort.Strings(sides)

	fmt.Fprintf(c.out, "\n=== SUMMARY: %d opportunities (%s) ===\n", s.Count, strings.Join(sides, " "))
	fmt.Fprintf(c.out, "  Score: avg %.1f  max %.1f  min %.1f\n", s.AvgScore, s.MaxScore, s.MinScore)
	fmt.Fprintf(c.out, "  Avg IV/HV: %.2f\n\n", s.AvgIVHVRatio)
}
