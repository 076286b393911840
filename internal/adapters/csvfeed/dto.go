package csvfeed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// dateLayout es el formato de la columna date de los ficheros de barras.
const dateLayout = "2006-01-02"

// chainRowDTO es una fila del CSV de cadena. Los campos son string para distinguir
// columnas vacías (opcionales) de ceros.
type chainRowDTO struct {
	Expiry          string `csv:"expiry"`
	Strike          string `csv:"strike"`
	Side            string `csv:"side"`
	Bid             string `csv:"bid"`
	Ask             string `csv:"ask"`
	Last            string `csv:"last"`
	IV              string `csv:"iv"`
	Delta           string `csv:"delta"`
	Gamma           string `csv:"gamma"`
	Theta           string `csv:"theta"`
	Vega            string `csv:"vega"`
	UnderlyingPrice string `csv:"underlying_price"`
	Volume          string `csv:"volume"`
	OpenInterest    string `csv:"open_interest"`
}

// toModel convierte el DTO en una ChainRow. Strike, side y expiry son obligatorios.
func (d chainRowDTO) toModel(symbol string) (domain.ChainRow, error) {
	p := parser{}
	side, err := domain.ParseOptionSide(d.Side)
	if err != nil {
		return domain.ChainRow{}, err
	}
	if _, err := domain.ParseExpiry(d.Expiry); err != nil {
		return domain.ChainRow{}, err
	}
	row := domain.ChainRow{
		Symbol:          symbol,
		Expiry:          strings.TrimSpace(d.Expiry),
		Strike:          p.required("strike", d.Strike),
		Side:            side,
		Bid:             p.float("bid", d.Bid),
		Ask:             p.float("ask", d.Ask),
		Last:            p.float("last", d.Last),
		IV:              p.optional("iv", d.IV),
		Delta:           p.optional("delta", d.Delta),
		Gamma:           p.optional("gamma", d.Gamma),
		Theta:           p.optional("theta", d.Theta),
		Vega:            p.optional("vega", d.Vega),
		UnderlyingPrice: p.required("underlying_price", d.UnderlyingPrice),
		Volume:          int64(p.float("volume", d.Volume)),
		OpenInterest:    int64(p.float("open_interest", d.OpenInterest)),
	}
	return row, p.err
}

// barDTO es una fila del CSV de barras diarias.
type barDTO struct {
	Date   string `csv:"date"`
	Open   string `csv:"open"`
	High   string `csv:"high"`
	Low    string `csv:"low"`
	Close  string `csv:"close"`
	Volume string `csv:"volume"`
}

func (d barDTO) toModel() (domain.PriceBar, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(d.Date))
	if err != nil {
		return domain.PriceBar{}, fmt.Errorf("date %q: %w", d.Date, domain.ErrInvalidInput)
	}
	p := parser{}
	bar := domain.PriceBar{
		Date:   date,
		Open:   p.float("open", d.Open),
		High:   p.float("high", d.High),
		Low:    p.float("low", d.Low),
		Close:  p.required("close", d.Close),
		Volume: p.float("volume", d.Volume),
	}
	return bar, p.err
}

// signalDTO es una señal exportada a CSV.
type signalDTO struct {
	Symbol            string  `csv:"symbol"`
	Expiry            string  `csv:"expiry"`
	Strike            float64 `csv:"strike"`
	Side              string  `csv:"side"`
	MarketPrice       float64 `csv:"market_price"`
	ModelPrice        float64 `csv:"model_price"`
	UnderlyingPrice   float64 `csv:"underlying_price"`
	IV                string  `csv:"iv"`
	HV                string  `csv:"hv"`
	IVHVRatio         string  `csv:"iv_hv_ratio"`
	PriceDeviationPct float64 `csv:"price_deviation_pct"`
	IsOverpriced      bool    `csv:"is_overpriced"`
	Delta             string  `csv:"delta"`
	Theta             string  `csv:"theta"`
	Score             float64 `csv:"score"`
	Signals           string  `csv:"signals"`
}

func newSignalDTO(s domain.MispricingSignal) signalDTO {
	return signalDTO{
		Symbol:            s.Symbol,
		Expiry:            s.Expiry,
		Strike:            s.Strike,
		Side:              s.Side.String(),
		MarketPrice:       s.MarketPrice,
		ModelPrice:        s.ModelPrice,
		UnderlyingPrice:   s.UnderlyingPrice,
		IV:                formatOptional(s.IV),
		HV:                formatOptional(s.HV),
		IVHVRatio:         formatOptional(s.IVHVRatio),
		PriceDeviationPct: s.PriceDeviationPct,
		IsOverpriced:      s.IsOverpriced,
		Delta:             formatOptional(s.Delta),
		Theta:             formatOptional(s.Theta),
		Score:             s.Score,
		Signals:           strings.Join(s.Signals, "; "),
	}
}

// parser acumula el primer error de conversión para no repetir if err != nil por columna.
type parser struct {
	err error
}

func (p *parser) float(col, s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("%s %q: %w", col, s, domain.ErrInvalidInput)
		return 0
	}
	return v
}

func (p *parser) required(col, s string) float64 {
	if strings.TrimSpace(s) == "" && p.err == nil {
		p.err = fmt.Errorf("%s: missing: %w", col, domain.ErrInvalidInput)
		return 0
	}
	return p.float(col, s)
}

func (p *parser) optional(col, s string) *float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v := p.float(col, s)
	if p.err != nil {
		return nil
	}
	return &v
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
