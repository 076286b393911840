package scoring

import (
	"github.com/montanaflynn/stats"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// Summary son estadísticas descriptivas de un conjunto de señales puntuadas.
type Summary struct {
	Count        int
	AvgScore     float64
	MaxScore     float64
	MinScore     float64
	AvgIVHVRatio float64 // solo sobre señales con ratio conocido
	BySide       map[domain.OptionSide]int
}

// GenerateSummary resume las señales. Sin señales devuelve ceros y un mapa vacío.
func GenerateSummary(signals []domain.MispricingSignal) Summary {
	s := Summary{BySide: make(map[domain.OptionSide]int)}
	if len(signals) == 0 {
		return s
	}

	scores := make([]float64, 0, len(signals))
	ratios := make([]float64, 0, len(signals))
	for _, sig := range signals {
		scores = append(scores, sig.Score)
		if sig.IVHVRatio != nil && *sig.IVHVRatio != 0 {
			ratios = append(ratios, *sig.IVHVRatio)
		}
		s.BySide[sig.Side]++
	}

	s.Count = len(signals)
	// stats solo falla con entrada vacía, ya descartada
	s.AvgScore, _ = stats.Mean(scores)
	s.MaxScore, _ = stats.Max(scores)
	s.MinScore, _ = stats.Min(scores)
	if len(ratios) > 0 {
		s.AvgIVHVRatio, _ = stats.Mean(ratios)
	}
	return s
}
