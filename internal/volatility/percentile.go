package volatility

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Percentile devuelve en qué percentil (0-100) está la vol rolling actual frente a
// toda su historia: % de valores históricos estrictamente menores que el actual.
// Exige al menos lookback cierres y dos valores rolling definidos.
func Percentile(closes []float64, window, lookback int) (float64, bool) {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if len(closes) < lookback {
		return 0, false
	}
	vols := dropNaN(rollingStd(logReturns(closes), window))
	if len(vols) < 2 {
		return 0, false
	}
	current := vols[len(vols)-1]
	below := 0
	for _, v := range vols {
		if v < current {
			below++
		}
	}
	return float64(below) / float64(len(vols)) * 100, true
}

// ConeRow es una fila del cono de volatilidad: distribución de la vol anualizada
// para una ventana concreta.
type ConeRow struct {
	Window  int
	Min     float64
	P25     float64
	Median  float64
	P75     float64
	Max     float64
	Current float64
}

// Cone calcula el cono de volatilidad. Las ventanas sin historia suficiente se omiten;
// el orden de salida sigue el de windows.
func Cone(closes []float64, windows []int) []ConeRow {
	if len(windows) == 0 {
		windows = DefaultConeWindows
	}
	returns := logReturns(closes)
	rows := make([]ConeRow, 0, len(windows))
	for _, w := range windows {
		if w <= 1 || len(returns) < w {
			continue
		}
		vols := dropNaN(rollingStd(returns, w))
		if len(vols) == 0 {
			continue
		}
		current := vols[len(vols)-1] * math.Sqrt(TradingDaysPerYear)
		for i := range vols {
			vols[i] *= math.Sqrt(TradingDaysPerYear)
		}
		slices.Sort(vols)
		rows = append(rows, ConeRow{
			Window:  w,
			Min:     vols[0],
			P25:     stat.Quantile(0.25, stat.LinInterp, vols, nil),
			Median:  stat.Quantile(0.50, stat.LinInterp, vols, nil),
			P75:     stat.Quantile(0.75, stat.LinInterp, vols, nil),
			Max:     vols[len(vols)-1],
			Current: current,
		})
	}
	return rows
}
