package volatility

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

var zigzag = []float64{100, 102, 101, 103, 102, 104, 103, 105, 104, 106, 105}

func constantBars(n int, o, h, l, c float64) domain.PriceSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make(domain.PriceSeries, n)
	for i := range out {
		out[i] = domain.PriceBar{Date: start.AddDate(0, 0, i), Open: o, High: h, Low: l, Close: c}
	}
	return out
}

// alternating genera cierres que suben y bajan un % fijo: calma primero, volátil al final.
func alternating(n, calm int, small, big float64) []float64 {
	out := []float64{100}
	for i := 0; i < n-1; i++ {
		m := small
		if i >= calm {
			m = big
		}
		if i%2 != 0 {
			m = -m
		}
		out = append(out, out[len(out)-1]*math.Exp(m))
	}
	return out
}

func TestStandard_KnownValue(t *testing.T) {
	v, ok := Standard(zigzag, 10, false)
	require.True(t, ok)
	assert.InDelta(t, 0.015331, v, 1e-6)

	v, ok = Standard(zigzag, 10, true)
	require.True(t, ok)
	assert.InDelta(t, 0.243372, v, 1e-6)
}

func TestStandard_InsufficientHistory(t *testing.T) {
	_, ok := Standard(zigzag[:10], 10, true)
	assert.False(t, ok, "10 cierres dan solo 9 returns")

	_, ok = Standard(zigzag[:11], 10, true)
	assert.True(t, ok)

	_, ok = Standard(zigzag, 0, true)
	assert.False(t, ok)
}

func TestStandard_ConstantGrowthIsZero(t *testing.T) {
	closes := []float64{100}
	for i := 0; i < 30; i++ {
		closes = append(closes, closes[len(closes)-1]*1.01)
	}
	v, ok := Standard(closes, 20, true)
	require.True(t, ok)
	assert.InDelta(t, 0, v, 1e-9)
}

func TestStandard_NonPositivePriceInWindow(t *testing.T) {
	closes := append([]float64{}, zigzag...)
	closes[7] = 0
	_, ok := Standard(closes, 5, true)
	assert.False(t, ok)

	// fuera de la ventana no afecta
	_, ok = Standard(closes, 2, true)
	assert.True(t, ok)
}

func TestParkinson_ConstantRange(t *testing.T) {
	high := make([]float64, 20)
	low := make([]float64, 20)
	for i := range high {
		high[i] = 100 * math.Exp(0.02)
		low[i] = 100
	}
	v, ok := Parkinson(high, low, 20, false)
	require.True(t, ok)
	assert.InDelta(t, 0.012011, v, 1e-6)

	v, ok = Parkinson(high, low, 20, true)
	require.True(t, ok)
	assert.InDelta(t, 0.190672, v, 1e-6)

	_, ok = Parkinson(high[:19], low[:19], 20, true)
	assert.False(t, ok)
	_, ok = Parkinson(high, low[:19], 10, true)
	assert.False(t, ok, "series de distinto largo")
}

func TestGarmanKlass_ConstantBars(t *testing.T) {
	bars := constantBars(25, 100, 102, 99, 101)
	v, ok := GarmanKlass(bars.Opens(), bars.Highs(), bars.Lows(), bars.Closes(), 21, true)
	require.True(t, ok)
	assert.InDelta(t, 0.320395, v, 1e-6)
}

func TestGarmanKlass_NegativeVarianceIsUndefined(t *testing.T) {
	// rango nulo pero open != close: la varianza sale negativa
	bars := constantBars(25, 100, 101, 101, 101)
	_, ok := GarmanKlass(bars.Opens(), bars.Highs(), bars.Lows(), bars.Closes(), 21, true)
	assert.False(t, ok)
}

func TestRogersSatchell_ConstantBars(t *testing.T) {
	bars := constantBars(25, 100, 102, 99, 101)
	v, ok := RogersSatchell(bars.Opens(), bars.Highs(), bars.Lows(), bars.Closes(), 21, true)
	require.True(t, ok)
	assert.InDelta(t, 0.315944, v, 1e-6)
}

func TestRogersSatchell_ClampsNegativeVariance(t *testing.T) {
	// close por encima del high (dato ruidoso): el término sale negativo
	bars := constantBars(25, 100, 101, 100, 102)
	v, ok := RogersSatchell(bars.Opens(), bars.Highs(), bars.Lows(), bars.Closes(), 21, true)
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestEstimators_NeverNegative(t *testing.T) {
	closes := alternating(120, 60, 0.004, 0.02)
	bars := make(domain.PriceSeries, len(closes))
	for i, c := range closes {
		bars[i] = domain.PriceBar{Open: c * 0.999, High: c * 1.01, Low: c * 0.99, Close: c}
	}
	for _, m := range Methods {
		for _, w := range []int{5, 10, 21, 63} {
			v, ok := Estimate(m, bars, w, true)
			require.True(t, ok, "%s/%d", m, w)
			assert.GreaterOrEqual(t, v, 0.0, "%s/%d", m, w)
		}
	}
}

func TestEstimate_RangeMethodsNeedRange(t *testing.T) {
	bars := make(domain.PriceSeries, 40)
	for i, c := range alternating(40, 40, 0.01, 0.01) {
		bars[i] = domain.PriceBar{Close: c}
	}
	_, ok := Estimate(MethodParkinson, bars, 21, true)
	assert.False(t, ok)
	_, ok = Estimate(MethodGarmanKlass, bars, 21, true)
	assert.False(t, ok)

	all := AllMethods(bars, 21)
	assert.Len(t, all, 1)
	assert.Contains(t, all, MethodStandard)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodStandard, m)

	m, err = ParseMethod("garman_klass")
	require.NoError(t, err)
	assert.Equal(t, MethodGarmanKlass, m)

	_, err = ParseMethod("yang_zhang")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
