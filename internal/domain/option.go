package domain

import (
	"fmt"
	"strings"
	"time"
)

// ExpiryLayout es el formato de las fechas de expiración en toda la cadena: "YYYYMMDD".
const ExpiryLayout = "20060102"

const (
	CalendarDaysPerYear = 365.0
	TradingDaysPerYear  = 252.0
)

// OptionSide es el lado de la opción (CALL o PUT).
type OptionSide string

const (
	Call OptionSide = "CALL"
	Put  OptionSide = "PUT"
)

// ParseOptionSide acepta CALL/PUT y las abreviaturas C/P sin distinguir mayúsculas.
func ParseOptionSide(s string) (OptionSide, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "C":
		return Call, nil
	case "PUT", "P":
		return Put, nil
	}
	return "", fmt.Errorf("domain.ParseOptionSide: %q: %w", s, ErrInvalidInput)
}

// IsCall devuelve true si el lado es CALL.
func (s OptionSide) IsCall() bool { return s == Call }

// String implementa fmt.Stringer.
func (s OptionSide) String() string { return string(s) }

// OptionGreeks agrupa las sensibilidades de una opción.
// Vega está expresada por 1 punto de volatilidad y theta en dólares por día calendario.
type OptionGreeks struct {
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// ParseExpiry convierte "YYYYMMDD" en una fecha (medianoche UTC).
func ParseExpiry(expiry string) (time.Time, error) {
	t, err := time.Parse(ExpiryLayout, strings.TrimSpace(expiry))
	if err != nil {
		return time.Time{}, fmt.Errorf("domain.ParseExpiry: %q: %w", expiry, ErrInvalidExpiry)
	}
	return t, nil
}

// DaysToExpiry calcula (expiry - hoy) en días calendario, usando la fecha local de now.
// No se cachea: el valor cambia al cruzar la medianoche.
func DaysToExpiry(expiry string, now time.Time) (int, error) {
	exp, err := ParseExpiry(expiry)
	if err != nil {
		return 0, err
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(exp.Sub(today).Hours() / 24), nil
}

// FormatExpiry formatea una fecha como "YYYYMMDD".
func FormatExpiry(t time.Time) string {
	return t.Format(ExpiryLayout)
}

// ChainRow es una fila de la cadena de opciones tal como la entrega el proveedor de datos.
// Los campos puntero son opcionales: nil = el proveedor no los envió.
type ChainRow struct {
	Symbol          string
	Expiry          string // YYYYMMDD
	Strike          float64
	Side            OptionSide
	Bid             float64
	Ask             float64
	Last            float64
	Mid             *float64 // si es nil se sintetiza como (bid+ask)/2
	IV              *float64
	Delta           *float64
	Gamma           *float64
	Theta           *float64
	Vega            *float64
	UnderlyingPrice float64
	Volume          int64
	OpenInterest    int64
}

// MidPrice devuelve el mid explícito si existe; si no, (bid+ask)/2 cuando ambos son > 0,
// y en último caso el último precio.
func (r ChainRow) MidPrice() float64 {
	if r.Mid != nil {
		return *r.Mid
	}
	if r.Bid > 0 && r.Ask > 0 {
		return (r.Bid + r.Ask) / 2
	}
	return r.Last
}

// Spread devuelve ask - bid, o 0 si falta alguno de los dos lados.
func (r ChainRow) Spread() float64 {
	if r.Bid > 0 && r.Ask > 0 {
		return r.Ask - r.Bid
	}
	return 0
}

// SpreadPercent devuelve el spread como % del mid bid/ask.
// Mid <= 0 se trata como iliquidez total (100%).
func (r ChainRow) SpreadPercent() float64 {
	mid := (r.Bid + r.Ask) / 2
	if mid <= 0 {
		return 100
	}
	return (r.Ask - r.Bid) / mid * 100
}

// DTE devuelve los días a expiración respecto a now.
func (r ChainRow) DTE(now time.Time) (int, error) {
	return DaysToExpiry(r.Expiry, now)
}

// Key identifica la opción dentro de un scan: (expiry, strike, side).
func (r ChainRow) Key() OptionKey {
	return OptionKey{Expiry: r.Expiry, Strike: r.Strike, Side: r.Side}
}

// OptionKey es la tupla usada para cruzar señales con la cadena (spreads, liquidez).
type OptionKey struct {
	Expiry string
	Strike float64
	Side   OptionSide
}

// Float devuelve un puntero a v. Útil para construir ChainRow y señales.
func Float(v float64) *float64 { return &v }
