package volatility

import (
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// Method identifica un estimador de volatilidad.
type Method string

const (
	MethodStandard       Method = "standard"
	MethodParkinson      Method = "parkinson"
	MethodGarmanKlass    Method = "garman_klass"
	MethodRogersSatchell Method = "rogers_satchell"
)

// Methods lista los estimadores en orden estable.
var Methods = []Method{MethodStandard, MethodParkinson, MethodGarmanKlass, MethodRogersSatchell}

// ParseMethod valida un nombre de estimador. "" equivale a standard.
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return MethodStandard, nil
	}
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("volatility.ParseMethod: %q: %w", s, domain.ErrInvalidInput)
}

// Estimate aplica el estimador indicado sobre la serie.
// Los estimadores de rango exigen barras con high/low (y open/close) positivos.
func Estimate(method Method, bars domain.PriceSeries, window int, annualize bool) (float64, bool) {
	switch method {
	case MethodStandard, "":
		return Standard(bars.Closes(), window, annualize)
	case MethodParkinson:
		if !bars.HasRange() {
			return 0, false
		}
		return Parkinson(bars.Highs(), bars.Lows(), window, annualize)
	case MethodGarmanKlass:
		if !bars.HasOHLC() {
			return 0, false
		}
		return GarmanKlass(bars.Opens(), bars.Highs(), bars.Lows(), bars.Closes(), window, annualize)
	case MethodRogersSatchell:
		if !bars.HasOHLC() {
			return 0, false
		}
		return RogersSatchell(bars.Opens(), bars.Highs(), bars.Lows(), bars.Closes(), window, annualize)
	}
	return 0, false
}

// AllMethods calcula la vol anualizada con todos los estimadores.
// Solo incluye los métodos con resultado definido.
func AllMethods(bars domain.PriceSeries, window int) map[Method]float64 {
	out := make(map[Method]float64, len(Methods))
	for _, m := range Methods {
		if v, ok := Estimate(m, bars, window, true); ok {
			out[m] = v
		}
	}
	return out
}

// Point es un valor de la serie histórica de volatilidad.
type Point struct {
	Date  time.Time
	Value float64
}

// History devuelve la vol close-to-close anualizada de cada ventana completa,
// fechada con la barra que cierra la ventana.
func History(bars domain.PriceSeries, window int) []Point {
	vols := rollingStd(logReturns(bars.Closes()), window)
	out := make([]Point, 0, len(vols))
	for i, v := range vols {
		if math.IsNaN(v) {
			continue
		}
		// vols[i] cubre los returns [i, i+window), el último return cierra en la barra i+window
		out = append(out, Point{Date: bars[i+window].Date, Value: v * math.Sqrt(TradingDaysPerYear)})
	}
	return out
}

// Summary resume la volatilidad del subyacente para reporting.
type Summary struct {
	ByWindow   map[int]float64    // vol standard por ventana (10/21/63)
	ByMethod   map[Method]float64 // todos los métodos a 21 días
	Percentile *float64           // percentil de la vol a 21 días; nil si no hay historia
}

// Summarize construye el Summary de una serie de barras.
func Summarize(bars domain.PriceSeries) Summary {
	closes := bars.Closes()
	s := Summary{
		ByWindow: make(map[int]float64, 3),
		ByMethod: AllMethods(bars, MediumWindow),
	}
	for _, w := range []int{ShortWindow, MediumWindow, LongWindow} {
		if v, ok := Standard(closes, w, true); ok {
			s.ByWindow[w] = v
		}
	}
	if p, ok := Percentile(closes, MediumWindow, DefaultLookback); ok {
		s.Percentile = &p
	}
	return s
}
