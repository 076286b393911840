package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ThresholdRules son los umbrales de filtrado del detector.
// Se leen durante un scan; entre scans se actualizan con Apply.
type ThresholdRules struct {
	MinIVHVRatio         float64 `yaml:"min_iv_hv_ratio"`         // IV debe ser al menos igual a HV
	TargetIVHVRatio      float64 `yaml:"target_iv_hv_ratio"`      // ideal: IV > HV en un 20%
	MaxPriceDeviationPct float64 `yaml:"max_price_deviation_pct"` // no lo usa la detección (umbral fijo de 5%)
	MinDelta             float64 `yaml:"min_delta"`               // valor absoluto
	MaxDelta             float64 `yaml:"max_delta"`               // valor absoluto
	MinPremium           float64 `yaml:"min_premium"`             // bid mínimo
	MinDTE               int     `yaml:"min_dte"`
	MaxDTE               int     `yaml:"max_dte"`
}

// DefaultThresholdRules devuelve las reglas por defecto para CSP/CC.
func DefaultThresholdRules() ThresholdRules {
	return ThresholdRules{
		MinIVHVRatio:         1.0,
		TargetIVHVRatio:      1.2,
		MaxPriceDeviationPct: 20.0,
		MinDelta:             0.10,
		MaxDelta:             0.40,
		MinPremium:           0.50,
		MinDTE:               7,
		MaxDTE:               45,
	}
}

// Validate comprueba la coherencia de las reglas.
func (r ThresholdRules) Validate() error {
	// NaN pasa cualquier comparación: se rechaza antes de los rangos
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"min_iv_hv_ratio", r.MinIVHVRatio},
		{"target_iv_hv_ratio", r.TargetIVHVRatio},
		{"max_price_deviation_pct", r.MaxPriceDeviationPct},
		{"min_delta", r.MinDelta},
		{"max_delta", r.MaxDelta},
		{"min_premium", r.MinPremium},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("domain.ThresholdRules: %s %g: %w", f.name, f.v, ErrInvalidRule)
		}
	}
	switch {
	case r.MinIVHVRatio < 0 || r.TargetIVHVRatio < 0:
		return fmt.Errorf("domain.ThresholdRules: negative iv/hv ratio: %w", ErrInvalidRule)
	case r.MaxPriceDeviationPct < 0:
		return fmt.Errorf("domain.ThresholdRules: negative max_price_deviation_pct: %w", ErrInvalidRule)
	case r.MinDelta < 0 || r.MaxDelta > 1 || r.MinDelta > r.MaxDelta:
		return fmt.Errorf("domain.ThresholdRules: delta range [%g, %g]: %w", r.MinDelta, r.MaxDelta, ErrInvalidRule)
	case r.MinPremium < 0:
		return fmt.Errorf("domain.ThresholdRules: negative min_premium: %w", ErrInvalidRule)
	case r.MinDTE < 0 || r.MinDTE > r.MaxDTE:
		return fmt.Errorf("domain.ThresholdRules: dte range [%d, %d]: %w", r.MinDTE, r.MaxDTE, ErrInvalidRule)
	}
	return nil
}

// RulesUpdate es una actualización parcial tipada: solo se aplican los campos no nil.
type RulesUpdate struct {
	MinIVHVRatio         *float64
	TargetIVHVRatio      *float64
	MaxPriceDeviationPct *float64
	MinDelta             *float64
	MaxDelta             *float64
	MinPremium           *float64
	MinDTE               *int
	MaxDTE               *int
}

// Apply devuelve las reglas con la actualización aplicada, o error si el resultado no valida.
// Las reglas originales no se modifican.
func (r ThresholdRules) Apply(u RulesUpdate) (ThresholdRules, error) {
	out := r
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setF(&out.MinIVHVRatio, u.MinIVHVRatio)
	setF(&out.TargetIVHVRatio, u.TargetIVHVRatio)
	setF(&out.MaxPriceDeviationPct, u.MaxPriceDeviationPct)
	setF(&out.MinDelta, u.MinDelta)
	setF(&out.MaxDelta, u.MaxDelta)
	setF(&out.MinPremium, u.MinPremium)
	if u.MinDTE != nil {
		out.MinDTE = *u.MinDTE
	}
	if u.MaxDTE != nil {
		out.MaxDTE = *u.MaxDTE
	}
	if err := out.Validate(); err != nil {
		return r, err
	}
	return out, nil
}

// rulesUpdateSetters mapea el nombre de cada regla a su setter en RulesUpdate.
var rulesUpdateSetters = map[string]func(*RulesUpdate, float64){
	"min_iv_hv_ratio":         func(u *RulesUpdate, v float64) { u.MinIVHVRatio = &v },
	"target_iv_hv_ratio":      func(u *RulesUpdate, v float64) { u.TargetIVHVRatio = &v },
	"max_price_deviation_pct": func(u *RulesUpdate, v float64) { u.MaxPriceDeviationPct = &v },
	"min_delta":               func(u *RulesUpdate, v float64) { u.MinDelta = &v },
	"max_delta":               func(u *RulesUpdate, v float64) { u.MaxDelta = &v },
	"min_premium":             func(u *RulesUpdate, v float64) { u.MinPremium = &v },
	"min_dte":                 func(u *RulesUpdate, v float64) { d := int(v); u.MinDTE = &d },
	"max_dte":                 func(u *RulesUpdate, v float64) { d := int(v); u.MaxDTE = &d },
}

func isDTERule(name string) bool {
	name = strings.ToLower(name)
	return name == "min_dte" || name == "max_dte"
}

// ParseRulesUpdate construye un RulesUpdate desde pares nombre=valor (p.ej. flags del CLI).
// Un nombre desconocido devuelve ErrUnknownRule en lugar de ignorarse.
func ParseRulesUpdate(values map[string]float64) (RulesUpdate, error) {
	var u RulesUpdate
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		set, ok := rulesUpdateSetters[strings.ToLower(name)]
		if !ok {
			return RulesUpdate{}, fmt.Errorf("domain.ParseRulesUpdate: %q: %w", name, ErrUnknownRule)
		}
		v := values[name]
		if isDTERule(name) && v != math.Trunc(v) {
			return RulesUpdate{}, fmt.Errorf("domain.ParseRulesUpdate: %s=%g is not a whole number of days: %w", name, v, ErrInvalidRule)
		}
		set(&u, v)
	}
	return u, nil
}
