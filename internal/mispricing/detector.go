// Package mispricing compara el precio de mercado de cada opción con su precio teórico
// a volatilidad realizada y produce señales para estrategias de venta de prima.
package mispricing

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/pricing"
)

const (
	// DefaultTopN es el número de oportunidades que devuelve FindOpportunities por defecto.
	DefaultTopN = 10

	// overpricedDeviationPct es el umbral fijo de desviación market vs modelo.
	// No depende de ThresholdRules.MaxPriceDeviationPct.
	overpricedDeviationPct = 5.0
)

// Quote es la entrada de AnalyzeOption: identidad de la opción más precios y volatilidades.
type Quote struct {
	Symbol          string
	Expiry          string // YYYYMMDD
	Strike          float64
	Side            domain.OptionSide
	MarketPrice     float64 // mid o último
	UnderlyingPrice float64
	IV              *float64 // nil o <= 0 = desconocida
	HV              float64  // <= 0 = desconocida
	Delta           *float64 // si es nil se deriva de IV
}

// Detector analiza opciones y cadenas contra unas ThresholdRules.
// Las reglas se leen al empezar cada llamada; UpdateRules es seguro entre scans.
type Detector struct {
	engine  *pricing.Engine
	now     func() time.Time
	workers int

	mu    sync.RWMutex
	rules domain.ThresholdRules
}

// Option configura un Detector.
type Option func(*Detector)

// WithClock inyecta el reloj usado para calcular DTE.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithWorkers activa el análisis paralelo de cadenas con n workers. n <= 1 = secuencial.
func WithWorkers(n int) Option {
	return func(d *Detector) { d.workers = n }
}

// NewDetector crea un Detector. Un engine nil usa el provider fallback a la tasa por defecto.
func NewDetector(engine *pricing.Engine, rules domain.ThresholdRules, opts ...Option) *Detector {
	if engine == nil {
		engine = pricing.NewEngine(nil, pricing.DefaultRiskFreeRate)
	}
	d := &Detector{engine: engine, rules: rules, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Rules devuelve una copia de las reglas vigentes.
func (d *Detector) Rules() domain.ThresholdRules {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rules
}

// UpdateRules aplica una actualización parcial validada. Si falla, las reglas no cambian.
func (d *Detector) UpdateRules(u domain.RulesUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	next, err := d.rules.Apply(u)
	if err != nil {
		return fmt.Errorf("mispricing.UpdateRules: %w", err)
	}
	d.rules = next
	slog.Debug("threshold rules updated", "rules", next)
	return nil
}

// AnalyzeOption analiza una opción individual.
// Solo falla si la expiración no se puede parsear.
func (d *Detector) AnalyzeOption(q Quote) (domain.MispricingSignal, error) {
	return d.analyzeOption(q, d.Rules(), d.now())
}

func (d *Detector) analyzeOption(q Quote, rules domain.ThresholdRules, now time.Time) (domain.MispricingSignal, error) {
	dte, err := domain.DaysToExpiry(q.Expiry, now)
	if err != nil {
		return domain.MispricingSignal{}, fmt.Errorf("mispricing.AnalyzeOption: %s %s: %w", q.Symbol, q.Expiry, err)
	}
	t := pricing.DaysToYears(dte, false)

	sig := domain.MispricingSignal{
		Symbol:          q.Symbol,
		Expiry:          q.Expiry,
		Strike:          q.Strike,
		Side:            q.Side,
		MarketPrice:     q.MarketPrice,
		UnderlyingPrice: q.UnderlyingPrice,
		IV:              q.IV,
		Delta:           q.Delta,
	}

	// Precio "justo" si la volatilidad futura fuese igual a la realizada
	if q.HV > 0 {
		sig.HV = domain.Float(q.HV)
		sig.ModelPrice = d.engine.Price(d.engine.Inputs(q.UnderlyingPrice, q.Strike, t, q.HV, q.Side))
	}
	if sig.ModelPrice > 0 {
		sig.PriceDeviationPct = (q.MarketPrice - sig.ModelPrice) / sig.ModelPrice * 100
	}

	iv := 0.0
	if q.IV != nil {
		iv = *q.IV
	}
	if iv > 0 && q.HV > 0 {
		sig.IVHVRatio = domain.Float(iv / q.HV)
	}

	if sig.IVHVRatio != nil && *sig.IVHVRatio > rules.MinIVHVRatio {
		sig.IsOverpriced = true
		sig.Signals = append(sig.Signals, fmt.Sprintf("IV/HV ratio %.2f > %.2f", *sig.IVHVRatio, rules.MinIVHVRatio))
	}
	if sig.PriceDeviationPct > overpricedDeviationPct {
		sig.IsOverpriced = true
		sig.Signals = append(sig.Signals, fmt.Sprintf("Market price %.1f%% above model", sig.PriceDeviationPct))
	}
	if sig.IVHVRatio != nil && *sig.IVHVRatio >= rules.TargetIVHVRatio {
		sig.Signals = append(sig.Signals, fmt.Sprintf("STRONG: IV/HV %.2f >= target %.2f", *sig.IVHVRatio, rules.TargetIVHVRatio))
	}

	if iv > 0 {
		g := d.engine.Greeks(d.engine.Inputs(q.UnderlyingPrice, q.Strike, t, iv, q.Side))
		if sig.Delta == nil {
			sig.Delta = domain.Float(g.Delta)
		}
		sig.Theta = domain.Float(g.Theta)
	}
	return sig, nil
}

// FindOpportunities analiza la cadena con filtros, restringe a los lados pedidos
// (vacío = todos) y devuelve las topN señales ordenadas por IV/HV descendente.
// El ranking definitivo lo hace el scorer.
func (d *Detector) FindOpportunities(rows []domain.ChainRow, hv float64, sides []domain.OptionSide, topN int) []domain.MispricingSignal {
	if len(rows) == 0 {
		return nil
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	rules := d.Rules()
	now := d.now()

	analyzed := d.analyzeChain(rows, hv, rules, now, true)
	signals := make([]domain.MispricingSignal, 0, len(analyzed))
	for _, a := range analyzed {
		if !sideAllowed(a.Row.Side, sides) {
			continue
		}
		sig, err := d.analyzeOption(Quote{
			Symbol:          a.Row.Symbol,
			Expiry:          a.Row.Expiry,
			Strike:          a.Row.Strike,
			Side:            a.Row.Side,
			MarketPrice:     a.Row.MidPrice(),
			UnderlyingPrice: a.Row.UnderlyingPrice,
			IV:              a.Row.IV,
			HV:              hv,
			Delta:           a.Row.Delta,
		}, rules, now)
		if err != nil {
			slog.Debug("analyze option failed", "symbol", a.Row.Symbol, "err", err)
			continue
		}
		signals = append(signals, sig)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Ratio() > signals[j].Ratio()
	})
	if len(signals) > topN {
		signals = signals[:topN]
	}
	return signals
}

func sideAllowed(side domain.OptionSide, sides []domain.OptionSide) bool {
	if len(sides) == 0 {
		return true
	}
	for _, s := range sides {
		if s == side {
			return true
		}
	}
	return false
}
