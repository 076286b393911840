package mispricing

import (
	"math"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// Filter aplica las ThresholdRules sobre filas analizadas.
type Filter struct {
	rules domain.ThresholdRules
}

// NewFilter crea un Filter con las reglas dadas.
func NewFilter(rules domain.ThresholdRules) *Filter {
	return &Filter{rules: rules}
}

// Apply devuelve las filas que pasan todos los filtros, en el orden de entrada.
func (f *Filter) Apply(rows []Analysis) []Analysis {
	result := make([]Analysis, 0, len(rows))
	for _, a := range rows {
		if f.passes(a) {
			result = append(result, a)
		}
	}
	return result
}

// passes es el AND de todos los criterios.
func (f *Filter) passes(a Analysis) bool {
	// Sin DTE fiable la fila no puede validarse contra el rango
	if a.Err != nil {
		return false
	}
	if a.DTE < f.rules.MinDTE || a.DTE > f.rules.MaxDTE {
		return false
	}
	// Delta en valor absoluto: los puts tienen delta negativa
	if a.Row.Delta != nil {
		d := math.Abs(*a.Row.Delta)
		if d < f.rules.MinDelta || d > f.rules.MaxDelta {
			return false
		}
	}
	if a.Row.Bid < f.rules.MinPremium {
		return false
	}
	if a.IVHVRatio != nil && *a.IVHVRatio < f.rules.MinIVHVRatio {
		return false
	}
	return true
}

// FilterByDelta devuelve las filas con |delta| en [minAbs, maxAbs]. Las filas sin delta se descartan.
func FilterByDelta(rows []domain.ChainRow, minAbs, maxAbs float64) []domain.ChainRow {
	return filterRows(rows, func(r domain.ChainRow) bool {
		if r.Delta == nil {
			return false
		}
		d := math.Abs(*r.Delta)
		return d >= minAbs && d <= maxAbs
	})
}

// FilterByPremium devuelve las filas con bid >= minBid.
func FilterByPremium(rows []domain.ChainRow, minBid float64) []domain.ChainRow {
	return filterRows(rows, func(r domain.ChainRow) bool { return r.Bid >= minBid })
}

// FilterByLiquidity devuelve las filas con spread (% del mid) <= maxSpreadPct.
func FilterByLiquidity(rows []domain.ChainRow, maxSpreadPct float64) []domain.ChainRow {
	return filterRows(rows, func(r domain.ChainRow) bool { return r.SpreadPercent() <= maxSpreadPct })
}

func filterRows(rows []domain.ChainRow, keep func(domain.ChainRow) bool) []domain.ChainRow {
	out := make([]domain.ChainRow, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
