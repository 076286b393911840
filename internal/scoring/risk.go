package scoring

import (
	"math"

	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/pricing"
)

// contractMultiplier es el número de acciones por contrato.
const contractMultiplier = 100

// ProbabilityOfProfit aproxima la probabilidad de que una opción vendida expire OTM
// como 1 - |delta|. En expiración usa la moneyness directamente.
func ProbabilityOfProfit(engine *pricing.Engine, spot, strike, iv float64, dte int, side domain.OptionSide) float64 {
	t := pricing.DaysToYears(dte, false)
	if t <= 0 {
		if side == domain.Put {
			return boolToFloat(spot > strike)
		}
		return boolToFloat(spot < strike)
	}
	delta := engine.Delta(engine.Inputs(spot, strike, t, iv, side))
	return 1 - math.Abs(delta)
}

// RiskReward son las métricas por contrato de una opción vendida.
type RiskReward struct {
	MaxProfit float64
	MaxLoss   float64
	Ratio     float64 // MaxProfit / MaxLoss; +Inf si MaxLoss es 0
	Breakeven float64
}

// CalculateRiskReward calcula riesgo/beneficio de vender la opción a premium.
// Para calls la pérdida teórica es ilimitada: se estima con el subyacente al doble.
func CalculateRiskReward(premium, strike, spot float64, side domain.OptionSide) RiskReward {
	rr := RiskReward{MaxProfit: premium * contractMultiplier}
	if side == domain.Put {
		rr.MaxLoss = (strike - premium) * contractMultiplier
		rr.Breakeven = strike - premium
	} else {
		rr.MaxLoss = math.Max((2*spot-strike-premium)*contractMultiplier, 0)
		rr.Breakeven = strike + premium
	}
	if rr.MaxLoss > 0 {
		rr.Ratio = rr.MaxProfit / rr.MaxLoss
	} else {
		rr.Ratio = math.Inf(1)
	}
	return rr
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
