package mispricing

import (
	"log/slog"
	"time"

	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/pricing"
)

// Analysis es una fila de la cadena con el análisis de mispricing añadido.
type Analysis struct {
	Row               domain.ChainRow
	DTE               int
	HV                float64
	ModelPrice        float64  // 0 si no hay HV, la opción expiró o la fila es inválida
	IVHVRatio         *float64 // nil si la fila no trae IV o no hay HV
	PriceDeviationPct float64  // sobre el mid
	IsOverpriced      bool
	// Err guarda el fallo de la fila (expiración ilegible). La fila no aborta el lote.
	Err error
}

// AnalyzeChain analiza todas las filas de la cadena con la HV dada.
// Con applyFilters solo devuelve las filas que pasan las ThresholdRules.
// El orden de salida es el de entrada.
func (d *Detector) AnalyzeChain(rows []domain.ChainRow, hv float64, applyFilters bool) []Analysis {
	if len(rows) == 0 {
		return nil
	}
	return d.analyzeChain(rows, hv, d.Rules(), d.now(), applyFilters)
}

func (d *Detector) analyzeChain(rows []domain.ChainRow, hv float64, rules domain.ThresholdRules, now time.Time, applyFilters bool) []Analysis {
	analyze := func(r domain.ChainRow) Analysis { return d.analyzeRow(r, hv, rules, now) }

	var out []Analysis
	if d.workers > 1 && len(rows) > 1 {
		out = analyzeConcurrent(rows, analyze, d.workers)
	} else {
		out = make([]Analysis, len(rows))
		for i, r := range rows {
			out[i] = analyze(r)
		}
	}

	if !applyFilters {
		return out
	}
	return NewFilter(rules).Apply(out)
}

func (d *Detector) analyzeRow(r domain.ChainRow, hv float64, rules domain.ThresholdRules, now time.Time) Analysis {
	a := Analysis{Row: r, HV: hv}

	dte, err := r.DTE(now)
	if err != nil {
		slog.Debug("model price failed", "symbol", r.Symbol, "expiry", r.Expiry, "err", err)
		a.Err = err
	} else {
		a.DTE = dte
		t := pricing.DaysToYears(dte, false)
		if t > 0 && hv > 0 {
			a.ModelPrice = d.engine.Price(d.engine.Inputs(r.UnderlyingPrice, r.Strike, t, hv, r.Side))
		}
	}

	if r.IV != nil && hv > 0 {
		a.IVHVRatio = domain.Float(*r.IV / hv)
	}
	if a.ModelPrice > 0 {
		a.PriceDeviationPct = (r.MidPrice() - a.ModelPrice) / a.ModelPrice * 100
	}
	a.IsOverpriced = (a.IVHVRatio != nil && *a.IVHVRatio > rules.MinIVHVRatio) ||
		a.PriceDeviationPct > overpricedDeviationPct
	return a
}
