package domain

import (
	"slices"
	"time"
)

// MispricingSignal es el resultado de analizar una opción contra su volatilidad realizada.
// No tiene identidad más allá de (symbol, expiry, strike, side): un scan puede producir
// duplicados y no se deduplican aquí.
type MispricingSignal struct {
	Symbol string
	Expiry string // YYYYMMDD
	Strike float64
	Side   OptionSide

	// --- Precios ---
	MarketPrice     float64
	ModelPrice      float64 // Black-Scholes con sigma = HV (0 si no hay HV)
	UnderlyingPrice float64

	// --- Volatilidad ---
	IV        *float64
	HV        *float64
	IVHVRatio *float64 // nil si falta IV o HV

	// --- Mispricing ---
	PriceDeviationPct float64 // (market - model) / model * 100
	IsOverpriced      bool    // true = bueno para vender prima

	// --- Greeks ---
	Delta *float64
	Theta *float64

	// --- Scoring (lo rellena el scorer) ---
	Score   float64
	Signals []string
}

// DTEAt devuelve los días a expiración respecto a now.
func (s MispricingSignal) DTEAt(now time.Time) (int, error) {
	return DaysToExpiry(s.Expiry, now)
}

// Key devuelve la tupla (expiry, strike, side) de la señal.
func (s MispricingSignal) Key() OptionKey {
	return OptionKey{Expiry: s.Expiry, Strike: s.Strike, Side: s.Side}
}

// WithScore devuelve una copia de la señal con el score asignado.
// La lista de señales se copia para no compartir el backing array.
func (s MispricingSignal) WithScore(score float64) MispricingSignal {
	out := s
	out.Score = score
	out.Signals = slices.Clone(s.Signals)
	return out
}

// Ratio devuelve el IV/HV o 0 si es desconocido.
func (s MispricingSignal) Ratio() float64 {
	if s.IVHVRatio == nil {
		return 0
	}
	return *s.IVHVRatio
}
