package scanner

import (
	"log/slog"
	"slices"
	"time"

	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/mispricing"
	"github.com/alejandrodnm/premiumscan/internal/pricing"
)

// WithIVBackfill activa el cálculo de IV desde el mid para las filas que llegan sin IV.
func WithIVBackfill(engine *pricing.Engine) Option {
	return func(s *Scanner) { s.ivEngine = engine }
}

// prepareChain aplica el filtro de liquidez y completa las IV ausentes antes del análisis.
func (s *Scanner) prepareChain(symbol string, chain []domain.ChainRow) []domain.ChainRow {
	if s.cfg.MaxSpreadPct > 0 {
		before := len(chain)
		chain = mispricing.FilterByLiquidity(chain, s.cfg.MaxSpreadPct)
		if dropped := before - len(chain); dropped > 0 {
			slog.Debug("illiquid rows dropped",
				"symbol", symbol,
				"dropped", dropped,
				"max_spread_pct", s.cfg.MaxSpreadPct,
			)
		}
	}
	if s.ivEngine != nil {
		var filled int
		chain, filled = backfillIV(s.ivEngine, chain, s.now())
		if filled > 0 {
			slog.Debug("implied volatility backfilled", "symbol", symbol, "rows", filled)
		}
	}
	return chain
}

// backfillIV devuelve una copia de la cadena con la IV implícita en el mid de las filas
// que no la traen. Las filas sin mid, vencidas o sin convergencia quedan sin IV.
func backfillIV(engine *pricing.Engine, chain []domain.ChainRow, now time.Time) ([]domain.ChainRow, int) {
	out := slices.Clone(chain)
	filled := 0
	for i := range out {
		r := &out[i]
		if r.IV != nil || r.UnderlyingPrice <= 0 {
			continue
		}
		mid := r.MidPrice()
		dte, err := r.DTE(now)
		if mid <= 0 || err != nil || dte <= 0 {
			continue
		}
		in := engine.Inputs(r.UnderlyingPrice, r.Strike, pricing.DaysToYears(dte, false), 0, r.Side)
		if iv, ok := engine.ImpliedVolatilityOK(mid, in); ok {
			r.IV = domain.Float(iv)
			filled++
		}
	}
	return out, filled
}
