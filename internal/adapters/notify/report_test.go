package notify_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/premiumscan/internal/adapters/notify"
	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/pricing"
	"github.com/alejandrodnm/premiumscan/internal/scoring"
	"github.com/alejandrodnm/premiumscan/internal/volatility"
)

func TestPrintQuote(t *testing.T) {
	var buf bytes.Buffer
	in := pricing.Inputs{Spot: 100, Strike: 100, T: 1, Sigma: 0.2, Side: domain.Call, Rate: 0.05}
	notify.PrintQuote(&buf, in, 10.4506, domain.OptionGreeks{Delta: 0.6368, Gamma: 0.0188, Theta: -0.0176, Vega: 0.3752, Rho: 0.5323}, "gonum")

	out := buf.String()
	assert.Contains(t, out, "CALL 100.00")
	assert.Contains(t, out, "σ 20.0%")
	assert.Contains(t, out, "provider gonum")
	assert.Contains(t, out, "$10.4506")
	assert.Contains(t, out, "0.6368")
}

func TestPrintRisk(t *testing.T) {
	var buf bytes.Buffer
	notify.PrintRisk(&buf, 0.75, scoring.CalculateRiskReward(2, 95, 100, domain.Put))
	assert.Contains(t, buf.String(), "POP 75.0%")
	assert.Contains(t, buf.String(), "breakeven $93.00")

	buf.Reset()
	notify.PrintRisk(&buf, 0.9, scoring.CalculateRiskReward(60, 100, 20, domain.Call))
	assert.Contains(t, buf.String(), "ratio ∞")
}

func TestPrintVolatility(t *testing.T) {
	var buf bytes.Buffer
	s := volatility.Summary{
		ByWindow: map[int]float64{21: 0.25, 10: 0.3},
		ByMethod: map[volatility.Method]float64{volatility.MethodStandard: 0.25, volatility.MethodParkinson: 0.2},
	}
	notify.PrintVolatility(&buf, "AAPL", 40, s)

	out := buf.String()
	assert.Contains(t, out, "AAPL | 40 bars")
	assert.Contains(t, out, "30.0%")
	assert.Contains(t, out, "parkinson")
	assert.NotContains(t, out, "garman_klass")
	assert.Contains(t, out, "HV percentile: N/A")

	buf.Reset()
	p := 87.0
	s.Percentile = &p
	notify.PrintVolatility(&buf, "AAPL", 300, s)
	assert.Contains(t, buf.String(), "HV percentile (21d vs 252d): 87")
}

func TestPrintCone(t *testing.T) {
	var buf bytes.Buffer
	notify.PrintCone(&buf, "AAPL", nil)
	assert.Contains(t, buf.String(), "not enough history")

	buf.Reset()
	notify.PrintCone(&buf, "AAPL", []volatility.ConeRow{{Window: 21, Min: 0.1, P25: 0.15, Median: 0.2, P75: 0.25, Max: 0.4, Current: 0.22}})
	assert.Contains(t, buf.String(), "AAPL volatility cone")
	assert.Contains(t, buf.String(), "22.0%")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	notify.PrintHistory(&buf, nil)
	assert.Contains(t, buf.String(), "No stored signals")

	buf.Reset()
	notify.PrintHistory(&buf, []domain.ScanResult{{
		ScanID:    "x",
		ScannedAt: time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC),
		Signal:    makeSignal(180, 1.6, 82.5),
	}})
	out := buf.String()
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "2025-02-05")
	assert.Contains(t, out, "82.5 🌟")
}

func TestPrintHVHistory(t *testing.T) {
	var buf bytes.Buffer
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	points := []volatility.Point{
		{Date: day, Value: 0.20},
		{Date: day.AddDate(0, 0, 1), Value: 0.25},
		{Date: day.AddDate(0, 0, 2), Value: 0.30},
	}
	notify.PrintHVHistory(&buf, "AAPL", 21, points, 2)

	out := buf.String()
	assert.Contains(t, out, "AAPL rolling HV (21d)")
	assert.NotContains(t, out, "2025-01-02")
	assert.Contains(t, out, "2025-01-04")
	assert.Contains(t, out, "30.0%")

	buf.Reset()
	notify.PrintHVHistory(&buf, "AAPL", 21, nil, 0)
	assert.Contains(t, buf.String(), "not enough history")
}

func TestPrintChain(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	rows := []domain.ChainRow{{
		Symbol: "AAPL", Expiry: "20250117", Strike: 180, Side: domain.Put,
		Bid: 1.05, Ask: 1.15, IV: domain.Float(0.27), Delta: domain.Float(-0.22), OpenInterest: 15400,
	}}
	notify.PrintChain(&buf, "AAPL", rows, now)

	out := buf.String()
	assert.Contains(t, out, "AAPL option chain | 1 rows")
	assert.Contains(t, out, "2025-01-17")
	assert.Contains(t, out, "11 days")
	assert.Contains(t, out, "9.1%")
	assert.Contains(t, out, "0.270")
	assert.Contains(t, out, "15400")

	buf.Reset()
	notify.PrintChain(&buf, "AAPL", nil, now)
	assert.Contains(t, buf.String(), "no chain rows match")
}
