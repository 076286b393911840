// Package scoring puntúa señales de mispricing de 0 a 100 y las ordena.
package scoring

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

const (
	DefaultTopN     = 10
	DefaultMinScore = 40.0
)

// Breakdown es el detalle de un score: cada factor en [0, 100] y el compuesto.
type Breakdown struct {
	IVHV           float64
	PriceDeviation float64
	Delta          float64
	Theta          float64
	Liquidity      float64
	DTE            float64
	Composite      float64
}

// Scorer combina los seis factores con unos ScoringWeights.
type Scorer struct {
	weights domain.ScoringWeights
	now     func() time.Time
}

// Option configura un Scorer.
type Option func(*Scorer)

// WithClock inyecta el reloj usado para calcular DTE.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// NewScorer crea un Scorer. Si los pesos no suman 1 solo se avisa: la convención no se impone.
func NewScorer(weights domain.ScoringWeights, opts ...Option) *Scorer {
	if !weights.Normalized() {
		slog.Warn("scoring weights do not sum to 1", "sum", weights.Sum())
	}
	s := &Scorer{weights: weights, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights devuelve los pesos del scorer.
func (s *Scorer) Weights() domain.ScoringWeights { return s.weights }

// Score devuelve el score compuesto de la señal, redondeado a 1 decimal.
// spreadPct nil = liquidez desconocida (neutral).
func (s *Scorer) Score(sig domain.MispricingSignal, spreadPct *float64) float64 {
	return s.Breakdown(sig, spreadPct).Composite
}

// Breakdown calcula cada factor y el compuesto ponderado.
func (s *Scorer) Breakdown(sig domain.MispricingSignal, spreadPct *float64) Breakdown {
	dte, err := sig.DTEAt(s.now())
	if err != nil {
		dte = 0
	}
	w := s.weights
	b := Breakdown{
		IVHV:           scoreIVHV(sig.IVHVRatio),
		PriceDeviation: scorePriceDeviation(sig.PriceDeviationPct),
		Delta:          scoreDelta(sig.Delta, w.OptimalDelta),
		Theta:          scoreTheta(sig.Theta),
		Liquidity:      scoreLiquidity(spreadPct),
		DTE:            scoreDTE(dte, w.OptimalDTE),
	}
	total := b.IVHV*w.IVHVRatio +
		b.PriceDeviation*w.PriceDeviation +
		b.Delta*w.DeltaOptimal +
		b.Theta*w.ThetaDecay +
		b.Liquidity*w.Liquidity +
		b.DTE*w.DTEOptimal
	b.Composite = round1(total)
	return b
}

// ScoreAndRank puntúa cada señal y devuelve copias con el score asignado, ordenadas
// de mayor a menor (empates en orden de entrada). Las señales de entrada no se modifican.
// chain es opcional y solo aporta el spread de cada opción.
func (s *Scorer) ScoreAndRank(signals []domain.MispricingSignal, chain []domain.ChainRow) []domain.MispricingSignal {
	if len(signals) == 0 {
		return nil
	}
	spreads := SpreadMap(chain)

	out := make([]domain.MispricingSignal, len(signals))
	for i, sig := range signals {
		var spread *float64
		if v, ok := spreads[sig.Key()]; ok {
			spread = &v
		}
		out[i] = sig.WithScore(s.Score(sig, spread))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// SpreadMap indexa el spread (% del mid bid/ask) de cada fila por (expiry, strike, side).
func SpreadMap(chain []domain.ChainRow) map[domain.OptionKey]float64 {
	out := make(map[domain.OptionKey]float64, len(chain))
	for _, r := range chain {
		out[r.Key()] = r.SpreadPercent()
	}
	return out
}

// TopOpportunities filtra por score >= minScore y luego trunca a n.
// Espera señales ya ordenadas por ScoreAndRank. n <= 0 usa DefaultTopN.
func TopOpportunities(signals []domain.MispricingSignal, n int, minScore float64) []domain.MispricingSignal {
	if n <= 0 {
		n = DefaultTopN
	}
	out := make([]domain.MispricingSignal, 0, min(n, len(signals)))
	for _, sig := range signals {
		if sig.Score < minScore {
			continue
		}
		out = append(out, sig)
		if len(out) == n {
			break
		}
	}
	return out
}

func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}
