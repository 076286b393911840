// Package markethours indica si la sesión regular de opciones de EE.UU. está abierta.
package markethours

import (
	"fmt"
	"time"
	_ "time/tzdata" // America/New_York disponible aunque el sistema no traiga zoneinfo
)

const (
	openHour, openMinute   = 9, 30
	closeHour, closeMinute = 16, 0
)

// Eastern es la zona horaria del mercado.
var Eastern = mustLoad("America/New_York")

type monthDay struct {
	month time.Month
	day   int
}

// holidays son los cierres completos por año (NYSE/Cboe).
var holidays = map[int][]monthDay{
	2024: {
		{time.January, 1}, {time.January, 15}, {time.February, 19}, {time.March, 29},
		{time.May, 27}, {time.June, 19}, {time.July, 4}, {time.September, 2},
		{time.November, 28}, {time.December, 25},
	},
	2025: {
		{time.January, 1}, {time.January, 20}, {time.February, 17}, {time.April, 18},
		{time.May, 26}, {time.June, 19}, {time.July, 4}, {time.September, 1},
		{time.November, 27}, {time.December, 25},
	},
}

// fixedHolidays se usan para los años sin calendario.
// TODO: cargar el calendario completo de 2026 en adelante en lugar de solo los festivos fijos.
var fixedHolidays = []monthDay{{time.January, 1}, {time.July, 4}, {time.December, 25}}

// Status es el estado de la sesión en un instante.
type Status struct {
	Open    bool
	Message string
}

// Icon devuelve 🟢 si el mercado está abierto y 🔴 si no.
func (s Status) Icon() string {
	if s.Open {
		return "🟢"
	}
	return "🔴"
}

// String implementa fmt.Stringer.
func (s Status) String() string { return s.Icon() + " " + s.Message }

// Check devuelve el estado del mercado en now.
func Check(now time.Time) Status {
	et := now.In(Eastern)

	if IsWeekend(et) {
		return Status{Message: fmt.Sprintf("Market closed - %s. Opens Monday 9:30 AM ET.", et.Weekday())}
	}
	if IsHoliday(et) {
		return Status{Message: "Market closed - US market holiday."}
	}

	minutes := et.Hour()*60 + et.Minute()
	open := openHour*60 + openMinute
	closing := closeHour*60 + closeMinute

	switch {
	case minutes < open:
		left := open - minutes
		return Status{Message: fmt.Sprintf("Market opens in %dh %dm (9:30 AM ET).", left/60, left%60)}
	case minutes >= closing:
		return Status{Message: "Market closed for today. Opens next trading day 9:30 AM ET."}
	}
	left := closing - minutes
	return Status{Open: true, Message: fmt.Sprintf("Market open - %dh %dm until close (4:00 PM ET).", left/60, left%60)}
}

// IsWeekend devuelve true los sábados y domingos (hora del Este).
func IsWeekend(t time.Time) bool {
	wd := t.In(Eastern).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsHoliday devuelve true si la fecha (hora del Este) es festivo de mercado.
func IsHoliday(t time.Time) bool {
	et := t.In(Eastern)
	days, ok := holidays[et.Year()]
	if !ok {
		days = fixedHolidays
	}
	for _, d := range days {
		if et.Month() == d.month && et.Day() == d.day {
			return true
		}
	}
	return false
}

// IsTradingDay devuelve true si la fecha no es fin de semana ni festivo.
func IsTradingDay(t time.Time) bool {
	return !IsWeekend(t) && !IsHoliday(t)
}

// NextOpen devuelve la próxima apertura estrictamente posterior a now.
func NextOpen(now time.Time) time.Time {
	et := now.In(Eastern)
	day := time.Date(et.Year(), et.Month(), et.Day(), openHour, openMinute, 0, 0, Eastern)
	for !day.After(et) || !IsTradingDay(day) {
		day = time.Date(day.Year(), day.Month(), day.Day()+1, openHour, openMinute, 0, 0, Eastern)
	}
	return day
}

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("markethours: load %s: %v", name, err))
	}
	return loc
}
