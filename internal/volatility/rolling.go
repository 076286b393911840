package volatility

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// logReturns devuelve ln(P_t / P_{t-1}). Precios no positivos producen NaN,
// que luego invalida cualquier ventana que los contenga.
func logReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i] <= 0 || prices[i-1] <= 0 {
			out[i-1] = math.NaN()
			continue
		}
		out[i-1] = math.Log(prices[i] / prices[i-1])
	}
	return out
}

// rollingStd devuelve la desviación estándar muestral (n-1) de cada ventana completa.
// El resultado i corresponde a la ventana que termina en xs[i+window-1].
func rollingStd(xs []float64, window int) []float64 {
	return rolling(xs, window, func(w []float64) float64 {
		if hasNaN(w) {
			return math.NaN()
		}
		return stat.StdDev(w, nil)
	})
}

// rollingMean devuelve la media de cada ventana completa.
func rollingMean(xs []float64, window int) []float64 {
	return rolling(xs, window, func(w []float64) float64 {
		if hasNaN(w) {
			return math.NaN()
		}
		return stat.Mean(w, nil)
	})
}

func rolling(xs []float64, window int, fn func([]float64) float64) []float64 {
	if window <= 0 || len(xs) < window {
		return nil
	}
	out := make([]float64, 0, len(xs)-window+1)
	for end := window; end <= len(xs); end++ {
		out = append(out, fn(xs[end-window:end]))
	}
	return out
}

// tailOf calcula solo la última ventana; evita recorrer toda la serie
// cuando el estimador únicamente necesita el valor más reciente.
func tailOf(xs []float64, window int) ([]float64, bool) {
	if window <= 0 || len(xs) < window {
		return nil, false
	}
	return xs[len(xs)-window:], true
}

func dropNaN(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

func hasNaN(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

func annualizeFactor(annualize bool) float64 {
	if annualize {
		return math.Sqrt(TradingDaysPerYear)
	}
	return 1
}

func sameLength(series ...[]float64) bool {
	for _, s := range series[1:] {
		if len(s) != len(series[0]) {
			return false
		}
	}
	return true
}
