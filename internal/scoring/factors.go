package scoring

import (
	"math"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// Cada factor es una función escalonada con salida en [0, 100].

// scoreIVHV: a mayor IV/HV, más cara la opción y mejor para vender.
func scoreIVHV(ratio *float64) float64 {
	if ratio == nil {
		return 0
	}
	switch r := *ratio; {
	case r >= 1.5:
		return 100
	case r >= 1.3:
		return 80
	case r >= 1.2:
		return 60
	case r >= 1.1:
		return 40
	case r >= 1.0:
		return 20
	}
	return 0
}

// scorePriceDeviation: desviación positiva = mercado por encima del modelo.
func scorePriceDeviation(pct float64) float64 {
	switch {
	case pct > 20:
		return 100
	case pct > 10:
		return 70
	case pct > 5:
		return 50
	case pct > 0:
		return 30
	}
	return 0
}

// scoreDelta premia |delta| dentro del rango óptimo. Por debajo (muy OTM) penaliza
// más rápido que por encima (cerca de ITM).
func scoreDelta(delta *float64, optimal domain.Range) float64 {
	if delta == nil {
		return 50
	}
	d := math.Abs(*delta)
	switch {
	case optimal.Contains(d):
		return 100
	case d < optimal.Min:
		return math.Max(0, 100-(optimal.Min-d)*500)
	}
	return math.Max(0, 100-(d-optimal.Max)*200)
}

// scoreTheta: más decaimiento diario = más prima cobrada por día.
func scoreTheta(theta *float64) float64 {
	if theta == nil {
		return 50
	}
	switch t := math.Abs(*theta); {
	case t >= 0.05:
		return 100
	case t >= 0.03:
		return 70
	case t >= 0.01:
		return 40
	}
	return 20
}

// scoreLiquidity: spread más estrecho = mejor ejecución.
func scoreLiquidity(spreadPct *float64) float64 {
	if spreadPct == nil {
		return 50
	}
	switch s := *spreadPct; {
	case s <= 2:
		return 100
	case s <= 5:
		return 70
	case s <= 10:
		return 40
	}
	return 20
}

// scoreDTE premia vencimientos dentro del rango óptimo.
func scoreDTE(dte int, optimal domain.Range) float64 {
	d := float64(dte)
	switch {
	case optimal.Contains(d):
		return 100
	case d < optimal.Min:
		return math.Max(0, 100-(optimal.Min-d)*10)
	}
	return math.Max(0, 100-(d-optimal.Max)*2)
}
