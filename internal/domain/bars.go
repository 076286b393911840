package domain

import "time"

// PriceBar es una barra OHLCV diaria del subyacente.
// Open/High/Low pueden venir a 0 si el proveedor solo entrega cierres.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries es una serie de barras alineadas, ordenada ascendente por fecha.
type PriceSeries []PriceBar

// Closes devuelve los cierres de la serie.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Opens devuelve las aperturas de la serie.
func (s PriceSeries) Opens() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Open
	}
	return out
}

// Highs devuelve los máximos de la serie.
func (s PriceSeries) Highs() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.High
	}
	return out
}

// Lows devuelve los mínimos de la serie.
func (s PriceSeries) Lows() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Low
	}
	return out
}

// HasRange devuelve true si todas las barras traen high y low positivos.
func (s PriceSeries) HasRange() bool {
	if len(s) == 0 {
		return false
	}
	for _, b := range s {
		if b.High <= 0 || b.Low <= 0 {
			return false
		}
	}
	return true
}

// HasOHLC devuelve true si todas las barras traen open, high, low y close positivos.
func (s PriceSeries) HasOHLC() bool {
	if !s.HasRange() {
		return false
	}
	for _, b := range s {
		if b.Open <= 0 || b.Close <= 0 {
			return false
		}
	}
	return true
}
