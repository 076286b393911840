package pricing

import (
	"math"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

const (
	newtonStartSigma = 0.20
	newtonMaxIter    = 100
	newtonTolerance  = 1e-6
	vegaFloor        = 1e-10
	minSigma         = 0.001
	maxSigma         = 5.0
)

// FallbackProvider es la implementación desde cero: Φ vía math.Erf e IV por Newton-Raphson.
type FallbackProvider struct{}

// NewFallbackProvider crea el provider de respaldo.
func NewFallbackProvider() *FallbackProvider { return &FallbackProvider{} }

func (*FallbackProvider) Name() string { return ProviderFallback }

func (*FallbackProvider) Price(in Inputs) float64 {
	return blackScholesPrice(in, normCDF)
}

func (*FallbackProvider) Greeks(in Inputs) domain.OptionGreeks {
	return blackScholesGreeks(in, normCDF, normPDF)
}

// ImpliedVolatility itera Newton-Raphson desde sigma=0.20, hasta 100 veces.
// Vega por debajo de 1e-10 aborta (zona plana); el resultado solo vale si está en (0, 5).
func (p *FallbackProvider) ImpliedVolatility(marketPrice float64, in Inputs) (float64, error) {
	sigma := newtonStartSigma
	for i := 0; i < newtonMaxIter; i++ {
		trial := in
		trial.Sigma = sigma

		price := p.Price(trial)
		vega := p.Greeks(trial).Vega
		if math.Abs(vega) < vegaFloor {
			return 0, domain.ErrNoConvergence
		}
		diff := marketPrice - price
		if math.Abs(diff) < newtonTolerance {
			break
		}

		// vega es por 1%, ×100 para volver a decimal
		sigma += diff / (vega * 100)
		if sigma <= 0 {
			sigma = minSigma
		}
	}
	if !(sigma > 0 && sigma < maxSigma) {
		return 0, domain.ErrNoConvergence
	}
	return sigma, nil
}

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
