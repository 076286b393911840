package pricing

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// Inputs son los parámetros de una valoración Black-Scholes europea.
type Inputs struct {
	Spot   float64 // precio del subyacente (> 0)
	Strike float64 // strike (> 0)
	T      float64 // años a expiración (>= 0)
	Sigma  float64 // volatilidad decimal (> 0 salvo en expiración)
	Side   domain.OptionSide
	Rate   float64 // tasa libre de riesgo decimal
}

// Validate detecta precondiciones violadas por el llamador.
func (in Inputs) Validate() error {
	switch {
	case !(in.Spot > 0):
		return fmt.Errorf("pricing.Inputs: spot %g: %w", in.Spot, domain.ErrInvalidInput)
	case !(in.Strike > 0):
		return fmt.Errorf("pricing.Inputs: strike %g: %w", in.Strike, domain.ErrInvalidInput)
	case in.Side != domain.Call && in.Side != domain.Put:
		return fmt.Errorf("pricing.Inputs: side %q: %w", in.Side, domain.ErrInvalidInput)
	case math.IsNaN(in.T) || math.IsNaN(in.Sigma) || math.IsNaN(in.Rate):
		return fmt.Errorf("pricing.Inputs: NaN parameter: %w", domain.ErrInvalidInput)
	}
	return nil
}

// Provider calcula precio, Greeks e IV para T > 0 y sigma > 0.
// Los casos degenerados (expiración, sigma <= 0) los resuelve Engine antes de delegar.
type Provider interface {
	Name() string
	Price(in Inputs) float64
	Greeks(in Inputs) domain.OptionGreeks
	// ImpliedVolatility invierte el precio; in.Sigma se ignora.
	ImpliedVolatility(marketPrice float64, in Inputs) (float64, error)
}

const (
	ProviderAuto     = "auto"
	ProviderGonum    = "gonum"
	ProviderFallback = "fallback"
)

// Valor de referencia para el self-check: S=K=100, T=1, sigma=20%, r=5% → call = 10.4506.
var referenceInputs = Inputs{Spot: 100, Strike: 100, T: 1, Sigma: 0.20, Side: domain.Call, Rate: 0.05}

const (
	referenceCallPrice = 10.450583572185565
	referenceTolerance = 1e-6
)

// Select devuelve el provider pedido por nombre.
// Con "auto" (o vacío) prueba el provider analítico y cae al fallback si no supera el self-check.
func Select(name string) (Provider, error) {
	switch name {
	case ProviderGonum:
		return NewGonumProvider(), nil
	case ProviderFallback:
		return NewFallbackProvider(), nil
	case ProviderAuto, "":
		return FirstWorking(NewGonumProvider(), NewFallbackProvider()), nil
	}
	return nil, fmt.Errorf("pricing.Select: unknown provider %q: %w", name, domain.ErrInvalidInput)
}

// FirstWorking devuelve el primer candidato capaz de reproducir el precio de referencia
// y de recuperar su volatilidad. Si ninguno pasa, devuelve el último.
func FirstWorking(candidates ...Provider) Provider {
	for _, p := range candidates {
		if err := selfCheck(p); err != nil {
			slog.Warn("pricing provider failed self-check", "provider", p.Name(), "err", err)
			continue
		}
		slog.Debug("pricing provider selected", "provider", p.Name())
		return p
	}
	last := candidates[len(candidates)-1]
	slog.Warn("no pricing provider passed the self-check, using last candidate", "provider", last.Name())
	return last
}

// selfCheck recupera la función en un provider que haga panic (binding roto) como error.
func selfCheck(p Provider) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	price := p.Price(referenceInputs)
	if math.Abs(price-referenceCallPrice) > referenceTolerance {
		return fmt.Errorf("reference price %.6f, want %.6f", price, referenceCallPrice)
	}
	iv, err := p.ImpliedVolatility(price, referenceInputs)
	if err != nil {
		return fmt.Errorf("reference iv: %w", err)
	}
	if math.Abs(iv-referenceInputs.Sigma) > 1e-4 {
		return fmt.Errorf("reference iv %.6f, want %.2f", iv, referenceInputs.Sigma)
	}
	return nil
}

// d1d2 calcula los términos d1 y d2 de Black-Scholes. Requiere T > 0 y sigma > 0.
func d1d2(in Inputs) (d1, d2, sqrtT float64) {
	sqrtT = math.Sqrt(in.T)
	d1 = (math.Log(in.Spot/in.Strike) + (in.Rate+0.5*in.Sigma*in.Sigma)*in.T) / (in.Sigma * sqrtT)
	d2 = d1 - in.Sigma*sqrtT
	return d1, d2, sqrtT
}

// blackScholesPrice y blackScholesGreeks son las fórmulas comunes a ambos providers;
// solo cambian las funciones de distribución cdf/pdf.
func blackScholesPrice(in Inputs, cdf func(float64) float64) float64 {
	d1, d2, _ := d1d2(in)
	disc := in.Strike * math.Exp(-in.Rate*in.T)
	if in.Side.IsCall() {
		return in.Spot*cdf(d1) - disc*cdf(d2)
	}
	return disc*cdf(-d2) - in.Spot*cdf(-d1)
}

func blackScholesGreeks(in Inputs, cdf, pdf func(float64) float64) domain.OptionGreeks {
	d1, d2, sqrtT := d1d2(in)
	disc := in.Strike * math.Exp(-in.Rate*in.T)
	nd1 := pdf(d1)

	var g domain.OptionGreeks
	g.Gamma = nd1 / (in.Spot * in.Sigma * sqrtT)
	g.Vega = in.Spot * sqrtT * nd1 / 100 // por 1 punto de vol

	decay := -(in.Spot * nd1 * in.Sigma) / (2 * sqrtT)
	if in.Side.IsCall() {
		g.Delta = cdf(d1)
		g.Theta = (decay - in.Rate*disc*cdf(d2)) / domain.CalendarDaysPerYear
		g.Rho = in.T * disc * cdf(d2) / 100
	} else {
		g.Delta = cdf(d1) - 1
		g.Theta = (decay + in.Rate*disc*cdf(-d2)) / domain.CalendarDaysPerYear
		g.Rho = -in.T * disc * cdf(-d2) / 100
	}
	return g
}
