package pricing

import (
	"math"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// DefaultRiskFreeRate es la tasa anual por defecto (5%).
const DefaultRiskFreeRate = 0.05

// Engine valora opciones europeas con Black-Scholes delegando en un Provider.
// Los regímenes degenerados (expiración, sigma <= 0, entradas inválidas) se resuelven
// aquí antes de cualquier log/sqrt, así ningún provider ve T <= 0.
type Engine struct {
	provider     Provider
	riskFreeRate float64
}

// NewEngine crea un Engine con el provider y la tasa libre de riesgo dados.
// Un provider nil usa el fallback.
func NewEngine(p Provider, riskFreeRate float64) *Engine {
	if p == nil {
		p = NewFallbackProvider()
	}
	return &Engine{provider: p, riskFreeRate: riskFreeRate}
}

// Provider devuelve el provider inyectado.
func (e *Engine) Provider() Provider { return e.provider }

// RiskFreeRate devuelve la tasa por defecto del engine.
func (e *Engine) RiskFreeRate() float64 { return e.riskFreeRate }

// Inputs construye unas Inputs con la tasa por defecto del engine.
func (e *Engine) Inputs(spot, strike, t, sigma float64, side domain.OptionSide) Inputs {
	return Inputs{Spot: spot, Strike: strike, T: t, Sigma: sigma, Side: side, Rate: e.riskFreeRate}
}

// Price devuelve el precio teórico. Con T <= 0 devuelve el valor intrínseco.
func (e *Engine) Price(in Inputs) float64 {
	if in.Validate() != nil {
		return 0
	}
	if in.T <= 0 {
		return intrinsic(in.Spot, in.Strike, in.Side)
	}
	if in.Sigma <= 0 {
		// límite sigma→0: intrínseco contra el strike descontado
		return intrinsic(in.Spot, in.Strike*math.Exp(-in.Rate*in.T), in.Side)
	}
	return e.provider.Price(in)
}

// Greeks devuelve las Greeks. Con T <= 0 solo delta puede ser distinta de 0 (-1, 0 o 1).
func (e *Engine) Greeks(in Inputs) domain.OptionGreeks {
	if in.Validate() != nil {
		return domain.OptionGreeks{}
	}
	if in.T <= 0 {
		return domain.OptionGreeks{Delta: expiredDelta(in.Spot, in.Strike, in.Side)}
	}
	if in.Sigma <= 0 {
		return domain.OptionGreeks{Delta: expiredDelta(in.Spot, in.Strike*math.Exp(-in.Rate*in.T), in.Side)}
	}
	return e.provider.Greeks(in)
}

// Delta es un atajo de Greeks(in).Delta.
func (e *Engine) Delta(in Inputs) float64 {
	return e.Greeks(in).Delta
}

// ImpliedVolatility invierte marketPrice. in.Sigma se ignora.
// T <= 0 o marketPrice <= 0 devuelven ErrNoConvergence sin tocar el provider.
func (e *Engine) ImpliedVolatility(marketPrice float64, in Inputs) (float64, error) {
	if in.T <= 0 || marketPrice <= 0 || in.Validate() != nil {
		return 0, domain.ErrNoConvergence
	}
	return e.provider.ImpliedVolatility(marketPrice, in)
}

// ImpliedVolatilityOK es ImpliedVolatility con la forma (valor, ok).
func (e *Engine) ImpliedVolatilityOK(marketPrice float64, in Inputs) (float64, bool) {
	iv, err := e.ImpliedVolatility(marketPrice, in)
	return iv, err == nil
}

// DaysToYears convierte días a años: /252 en días de trading, /365 en calendario.
func DaysToYears(days int, tradingDays bool) float64 {
	if tradingDays {
		return float64(days) / domain.TradingDaysPerYear
	}
	return float64(days) / domain.CalendarDaysPerYear
}

func intrinsic(spot, strike float64, side domain.OptionSide) float64 {
	if side.IsCall() {
		return math.Max(0, spot-strike)
	}
	return math.Max(0, strike-spot)
}

func expiredDelta(spot, strike float64, side domain.OptionSide) float64 {
	switch {
	case side.IsCall() && spot > strike:
		return 1
	case !side.IsCall() && spot < strike:
		return -1
	}
	return 0
}
