package domain

import "time"

// SymbolScan es el resultado del scan de un subyacente.
type SymbolScan struct {
	Symbol          string
	UnderlyingPrice float64
	HV              *float64 // nil si no hubo historia suficiente
	HVMethod        string
	ChainRows       int                // filas recibidas del proveedor
	Signals         []MispricingSignal // ya puntuadas, ordenadas y recortadas
	Err             error              // fallo del símbolo; no aborta el resto del scan
}

// Scan es un ciclo completo del scanner sobre la watchlist.
type Scan struct {
	ID         string // UUID
	StartedAt  time.Time
	Duration   time.Duration
	MarketOpen bool
	Market     string // mensaje de estado de la sesión
	Symbols    []SymbolScan
}

// Signals devuelve todas las señales del scan, símbolo a símbolo.
func (s Scan) Signals() []MispricingSignal {
	var out []MispricingSignal
	for _, sym := range s.Symbols {
		out = append(out, sym.Signals...)
	}
	return out
}

// BestScore devuelve el mayor score del scan, o 0 si no hay señales.
func (s Scan) BestScore() float64 {
	best := 0.0
	for _, sig := range s.Signals() {
		if sig.Score > best {
			best = sig.Score
		}
	}
	return best
}

// ScanResult es una señal persistida junto al scan que la produjo.
type ScanResult struct {
	ScanID    string
	ScannedAt time.Time
	Signal    MispricingSignal
}
