package pricing

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

const (
	gonumMaxIter   = 100
	gonumPriceTol  = 1e-9
	gonumSigmaLow  = 1e-6
	gonumSigmaTol  = 1e-12
	gonumGuessLow  = 0.01
	gonumGuessHigh = 4.0
)

// GonumProvider usa la normal estándar de gonum y un solver de IV acotado:
// Newton con bracketing y bisección cuando el paso sale del intervalo.
type GonumProvider struct {
	dist distuv.Normal
}

// NewGonumProvider crea el provider analítico.
func NewGonumProvider() *GonumProvider {
	return &GonumProvider{dist: distuv.UnitNormal}
}

func (*GonumProvider) Name() string { return ProviderGonum }

func (p *GonumProvider) Price(in Inputs) float64 {
	return blackScholesPrice(in, p.dist.CDF)
}

func (p *GonumProvider) Greeks(in Inputs) domain.OptionGreeks {
	return blackScholesGreeks(in, p.dist.CDF, p.dist.Prob)
}

// ImpliedVolatility devuelve ErrNoConvergence si el precio viola las cotas de no arbitraje
// o si la volatilidad que lo explica cae fuera de (0, 5), igual que el fallback.
func (p *GonumProvider) ImpliedVolatility(marketPrice float64, in Inputs) (float64, error) {
	disc := in.Strike * math.Exp(-in.Rate*in.T)
	lowerBound, upperBound := math.Max(0, in.Spot-disc), in.Spot
	if !in.Side.IsCall() {
		lowerBound, upperBound = math.Max(0, disc-in.Spot), disc
	}
	if marketPrice <= lowerBound || marketPrice >= upperBound {
		return 0, domain.ErrNoConvergence
	}

	lo, hi := gonumSigmaLow, maxSigma
	priceAt := func(sigma float64) float64 {
		trial := in
		trial.Sigma = sigma
		return p.Price(trial)
	}
	if priceAt(hi) < marketPrice {
		return 0, domain.ErrNoConvergence
	}

	// Brenner-Subrahmanyam como punto de partida
	sigma := math.Sqrt(2*math.Pi/in.T) * marketPrice / in.Spot
	sigma = math.Min(math.Max(sigma, gonumGuessLow), gonumGuessHigh)

	for i := 0; i < gonumMaxIter; i++ {
		trial := in
		trial.Sigma = sigma
		diff := p.Price(trial) - marketPrice
		if math.Abs(diff) < gonumPriceTol {
			break
		}
		if diff > 0 {
			hi = sigma
		} else {
			lo = sigma
		}
		if hi-lo < gonumSigmaTol {
			break
		}

		next := math.NaN()
		if vega := p.Greeks(trial).Vega * 100; vega > vegaFloor {
			next = sigma - diff/vega
		}
		if math.IsNaN(next) || next <= lo || next >= hi {
			next = 0.5 * (lo + hi)
		}
		sigma = next
	}

	if !(sigma > 0 && sigma < maxSigma) {
		return 0, domain.ErrNoConvergence
	}
	return sigma, nil
}
