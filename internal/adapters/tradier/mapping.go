package tradier

import (
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

const dateLayout = "2006-01-02"

// mapOptions convierte los contratos de una expiración en filas de la cadena.
// Los contratos con lado o fecha irreconocibles se descartan.
func mapOptions(raw []option, symbol string, underlying float64) ([]domain.ChainRow, int) {
	rows := make([]domain.ChainRow, 0, len(raw))
	skipped := 0
	for _, o := range raw {
		row, err := mapOption(o, symbol, underlying)
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped
}

// mapOption convierte un contrato de Tradier a domain.ChainRow.
// La IV es mid_iv; si viene a 0 se usa smv_vol. Una IV 0 se trata como ausente.
func mapOption(o option, symbol string, underlying float64) (domain.ChainRow, error) {
	side, err := domain.ParseOptionSide(o.OptionType)
	if err != nil {
		return domain.ChainRow{}, err
	}
	exp, err := time.Parse(dateLayout, o.ExpirationDate)
	if err != nil {
		return domain.ChainRow{}, fmt.Errorf("expiration %q: %w", o.ExpirationDate, domain.ErrInvalidExpiry)
	}

	row := domain.ChainRow{
		Symbol:          strings.ToUpper(symbol),
		Expiry:          domain.FormatExpiry(exp),
		Strike:          o.Strike,
		Side:            side,
		Bid:             value(o.Bid),
		Ask:             value(o.Ask),
		Last:            value(o.Last),
		UnderlyingPrice: underlying,
		Volume:          o.Volume,
		OpenInterest:    o.OpenInterest,
	}
	if g := o.Greeks; g != nil {
		row.IV = positive(g.MidIV)
		if row.IV == nil {
			row.IV = positive(g.SmvIV)
		}
		row.Delta = g.Delta
		row.Gamma = g.Gamma
		row.Theta = g.Theta
		row.Vega = g.Vega
	}
	return row, nil
}

// mapHistory convierte las barras diarias; las fechas inválidas se descartan.
func mapHistory(days []historyDay) domain.PriceSeries {
	bars := make(domain.PriceSeries, 0, len(days))
	for _, d := range days {
		date, err := time.Parse(dateLayout, d.Date)
		if err != nil {
			continue
		}
		bars = append(bars, domain.PriceBar{
			Date:   date,
			Open:   d.Open,
			High:   d.High,
			Low:    d.Low,
			Close:  d.Close,
			Volume: d.Volume,
		})
	}
	return bars
}

// underlyingPrice devuelve last, o el mid bid/ask, o el cierre previo.
func underlyingPrice(q quote) float64 {
	if v := value(q.Last); v > 0 {
		return v
	}
	if bid, ask := value(q.Bid), value(q.Ask); bid > 0 && ask > 0 {
		return (bid + ask) / 2
	}
	return value(q.PrevClose)
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}
