package notify

import (
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// FormatIVHV formatea el ratio IV/HV con un icono según lo cara que esté la opción.
func FormatIVHV(ratio *float64) string {
	if ratio == nil {
		return "N/A"
	}
	r := *ratio
	switch {
	case r >= 1.5:
		return fmt.Sprintf("%.2f 🔥", r)
	case r >= 1.2:
		return fmt.Sprintf("%.2f ⬆", r)
	case r >= 1.0:
		return fmt.Sprintf("%.2f", r)
	}
	return fmt.Sprintf("%.2f ⬇", r)
}

// FormatScore formatea el score con su icono de calidad.
func FormatScore(score float64) string {
	switch {
	case score >= 80:
		return fmt.Sprintf("%.1f 🌟", score)
	case score >= 60:
		return fmt.Sprintf("%.1f ✅", score)
	case score >= 40:
		return fmt.Sprintf("%.1f ⚡", score)
	}
	return fmt.Sprintf("%.1f", score)
}

// FormatDTE formatea los días a expiración.
func FormatDTE(dte int) string {
	switch {
	case dte <= 0:
		return "Expired"
	case dte == 1:
		return "1 day"
	}
	return fmt.Sprintf("%d days", dte)
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}

func formatPct(v float64) string {
	if math.Abs(v) < 0.05 {
		return "0.0%"
	}
	return fmt.Sprintf("%+.1f%%", v)
}

func formatExpiry(expiry string) string {
	t, err := domain.ParseExpiry(expiry)
	if err != nil {
		return expiry
	}
	return t.Format("2006-01-02")
}

func signalDTE(sig domain.MispricingSignal, now time.Time) int {
	dte, err := sig.DTEAt(now)
	if err != nil {
		return 0
	}
	return dte
}
