package domain

import "math"

// Range es un intervalo cerrado [Min, Max].
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains devuelve true si v está dentro del intervalo (extremos incluidos).
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// ScoringWeights son los pesos de los seis factores del score compuesto.
// Por convención suman 1.0; no se fuerza.
type ScoringWeights struct {
	IVHVRatio      float64 `yaml:"iv_hv_ratio"`
	PriceDeviation float64 `yaml:"price_deviation"`
	DeltaOptimal   float64 `yaml:"delta_optimal"`
	ThetaDecay     float64 `yaml:"theta_decay"`
	Liquidity      float64 `yaml:"liquidity"`
	DTEOptimal     float64 `yaml:"dte_optimal"`

	OptimalDelta Range `yaml:"optimal_delta"` // |delta| objetivo
	OptimalDTE   Range `yaml:"optimal_dte"`   // DTE objetivo
}

// DefaultScoringWeights devuelve los pesos por defecto, pensados para venta de prima.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		IVHVRatio:      0.30, // más IV/HV = más prima
		PriceDeviation: 0.20, // mercado > modelo = sobrevalorada
		DeltaOptimal:   0.15,
		ThetaDecay:     0.15,
		Liquidity:      0.10, // spreads estrechos = mejores fills
		DTEOptimal:     0.10,
		OptimalDelta:   Range{Min: 0.20, Max: 0.30},
		OptimalDTE:     Range{Min: 14, Max: 35},
	}
}

// Sum devuelve la suma de los seis pesos.
func (w ScoringWeights) Sum() float64 {
	return w.IVHVRatio + w.PriceDeviation + w.DeltaOptimal + w.ThetaDecay + w.Liquidity + w.DTEOptimal
}

// Normalized devuelve true si los pesos suman 1.0 (tolerancia 1e-9).
func (w ScoringWeights) Normalized() bool {
	return math.Abs(w.Sum()-1.0) < 1e-9
}
