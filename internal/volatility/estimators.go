// Package volatility estima volatilidad histórica (realizada) a partir de series de precios.
//
// Todos los estimadores devuelven el valor de la ventana más reciente como (valor, true),
// o (0, false) si la historia no alcanza o el resultado de la ventana no está definido.
// Nunca devuelven error ni valores negativos.
package volatility

import (
	"math"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

const (
	TradingDaysPerYear = domain.TradingDaysPerYear

	ShortWindow     = 10
	MediumWindow    = 21
	LongWindow      = 63
	DefaultLookback = 252
)

// DefaultConeWindows son las ventanas típicas del cono: 2 semanas a 1 año.
var DefaultConeWindows = []int{10, 21, 63, 126, 252}

// Standard es la volatilidad close-to-close: desviación estándar de los log returns.
// Necesita al menos window+1 cierres.
func Standard(closes []float64, window int, annualize bool) (float64, bool) {
	if window <= 0 || len(closes) < window+1 {
		return 0, false
	}
	tail, ok := tailOf(logReturns(closes), window)
	if !ok {
		return 0, false
	}
	sd := rollingStd(tail, window)
	if len(sd) == 0 || math.IsNaN(sd[0]) {
		return 0, false
	}
	return sd[0] * annualizeFactor(annualize), true
}

// Parkinson usa el rango intradía: σ² = mean(ln(H/L)²) / (4·ln2). Asume drift nulo.
func Parkinson(high, low []float64, window int, annualize bool) (float64, bool) {
	if !sameLength(high, low) {
		return 0, false
	}
	h, okH := tailOf(high, window)
	l, okL := tailOf(low, window)
	if !okH || !okL {
		return 0, false
	}
	terms := make([]float64, window)
	for i := range terms {
		terms[i] = sq(logRatio(h[i], l[i]))
	}
	return fromVariance(terms, window, 1/(4*math.Ln2), annualize, false)
}

// GarmanKlass combina rango intradía y open→close:
// σ² = mean(0.5·ln(H/L)² − (2·ln2 − 1)·ln(C/O)²).
// Una varianza negativa deja el resultado indefinido.
func GarmanKlass(open, high, low, close []float64, window int, annualize bool) (float64, bool) {
	o, h, l, c, ok := ohlcTail(open, high, low, close, window)
	if !ok {
		return 0, false
	}
	k := 2*math.Ln2 - 1
	terms := make([]float64, window)
	for i := range terms {
		terms[i] = 0.5*sq(logRatio(h[i], l[i])) - k*sq(logRatio(c[i], o[i]))
	}
	return fromVariance(terms, window, 1, annualize, false)
}

// RogersSatchell no asume drift nulo, sirve para series con tendencia:
// σ² = mean(ln(H/O)·ln(H/C) + ln(L/O)·ln(L/C)).
// La varianza se recorta a >= 0: con poca volatilidad el ruido la vuelve negativa.
func RogersSatchell(open, high, low, close []float64, window int, annualize bool) (float64, bool) {
	o, h, l, c, ok := ohlcTail(open, high, low, close, window)
	if !ok {
		return 0, false
	}
	terms := make([]float64, window)
	for i := range terms {
		terms[i] = logRatio(h[i], o[i])*logRatio(h[i], c[i]) + logRatio(l[i], o[i])*logRatio(l[i], c[i])
	}
	return fromVariance(terms, window, 1, annualize, true)
}

// fromVariance promedia los términos de varianza de la última ventana, escala y devuelve σ.
func fromVariance(terms []float64, window int, scale float64, annualize, clamp bool) (float64, bool) {
	means := rollingMean(terms, window)
	if len(means) == 0 {
		return 0, false
	}
	variance := scale * means[len(means)-1]
	if clamp && variance < 0 {
		variance = 0
	}
	if math.IsNaN(variance) || variance < 0 {
		return 0, false
	}
	return math.Sqrt(variance) * annualizeFactor(annualize), true
}

func ohlcTail(open, high, low, close []float64, window int) (o, h, l, c []float64, ok bool) {
	if !sameLength(open, high, low, close) {
		return nil, nil, nil, nil, false
	}
	var okO, okH, okL, okC bool
	o, okO = tailOf(open, window)
	h, okH = tailOf(high, window)
	l, okL = tailOf(low, window)
	c, okC = tailOf(close, window)
	return o, h, l, c, okO && okH && okL && okC
}

func logRatio(a, b float64) float64 {
	if a <= 0 || b <= 0 {
		return math.NaN()
	}
	return math.Log(a / b)
}

func sq(x float64) float64 { return x * x }
