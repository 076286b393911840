package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/pricing"
)

var testNow = time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)

func newTestScorer() *Scorer {
	return NewScorer(domain.DefaultScoringWeights(), WithClock(func() time.Time { return testNow }))
}

func signal(strike, ratio float64) domain.MispricingSignal {
	return domain.MispricingSignal{
		Symbol:    "AAPL",
		Expiry:    domain.FormatExpiry(testNow.AddDate(0, 0, 30)),
		Strike:    strike,
		Side:      domain.Put,
		IVHVRatio: domain.Float(ratio),
		Delta:     domain.Float(-0.25),
		Theta:     domain.Float(-0.04),
	}
}

func TestScoreIVHV_Monotonic(t *testing.T) {
	s16 := scoreIVHV(domain.Float(1.6))
	s14 := scoreIVHV(domain.Float(1.4))
	s10 := scoreIVHV(domain.Float(1.0))
	s09 := scoreIVHV(domain.Float(0.9))

	assert.GreaterOrEqual(t, s16, s14)
	assert.GreaterOrEqual(t, s14, s10)
	assert.GreaterOrEqual(t, s10, s09)
	assert.Equal(t, 0.0, s09)
	assert.Equal(t, 0.0, scoreIVHV(nil))
	assert.Equal(t, 40.0, scoreIVHV(domain.Float(1.1)))
	assert.Equal(t, 100.0, s16)
}

func TestScorePriceDeviation_Buckets(t *testing.T) {
	cases := map[float64]float64{25: 100, 20: 70, 15: 70, 10: 50, 6: 50, 5: 30, 0.1: 30, 0: 0, -10: 0}
	for pct, want := range cases {
		assert.Equal(t, want, scorePriceDeviation(pct), "pct=%v", pct)
	}
}

func TestScoreDelta(t *testing.T) {
	optimal := domain.Range{Min: 0.20, Max: 0.30}
	assert.Equal(t, 50.0, scoreDelta(nil, optimal))
	assert.Equal(t, 100.0, scoreDelta(domain.Float(-0.25), optimal))
	assert.Equal(t, 100.0, scoreDelta(domain.Float(0.30), optimal))
	assert.InDelta(t, 75.0, scoreDelta(domain.Float(-0.15), optimal), 1e-9)
	assert.InDelta(t, 90.0, scoreDelta(domain.Float(0.35), optimal), 1e-9)
	assert.InDelta(t, 0.0, scoreDelta(domain.Float(0), optimal), 1e-9)
	assert.InDelta(t, 25.0, scoreDelta(domain.Float(0.05), optimal), 1e-9)
	assert.Equal(t, 0.0, scoreDelta(domain.Float(0.95), optimal))
}

func TestScoreTheta_Buckets(t *testing.T) {
	assert.Equal(t, 50.0, scoreTheta(nil))
	assert.Equal(t, 100.0, scoreTheta(domain.Float(-0.06)))
	assert.Equal(t, 70.0, scoreTheta(domain.Float(-0.03)))
	assert.Equal(t, 40.0, scoreTheta(domain.Float(-0.02)))
	assert.Equal(t, 20.0, scoreTheta(domain.Float(-0.005)))
}

func TestScoreLiquidity_Buckets(t *testing.T) {
	assert.Equal(t, 50.0, scoreLiquidity(nil))
	assert.Equal(t, 100.0, scoreLiquidity(domain.Float(2)))
	assert.Equal(t, 70.0, scoreLiquidity(domain.Float(4.9)))
	assert.Equal(t, 40.0, scoreLiquidity(domain.Float(10)))
	assert.Equal(t, 20.0, scoreLiquidity(domain.Float(100)))
}

func TestScoreDTE(t *testing.T) {
	optimal := domain.Range{Min: 14, Max: 35}
	assert.Equal(t, 100.0, scoreDTE(14, optimal))
	assert.Equal(t, 100.0, scoreDTE(35, optimal))
	assert.Equal(t, 60.0, scoreDTE(10, optimal))
	assert.Equal(t, 90.0, scoreDTE(40, optimal))
	assert.Equal(t, 0.0, scoreDTE(0, optimal))
	assert.Equal(t, 0.0, scoreDTE(120, optimal))
}

func TestScore_Composite(t *testing.T) {
	s := newTestScorer()

	// iv_hv 100·0.30 + dev 0 + delta 100·0.15 + theta 70·0.15 + liquidez 50·0.10 + dte 100·0.10
	assert.Equal(t, 70.5, s.Score(signal(95, 1.6), nil))
	// iv_hv 40·0.30
	assert.Equal(t, 52.5, s.Score(signal(90, 1.1), nil))
	// spread 1% sube liquidez a 100
	assert.Equal(t, 75.5, s.Score(signal(95, 1.6), domain.Float(1)))

	b := s.Breakdown(signal(95, 1.6), nil)
	assert.Equal(t, Breakdown{IVHV: 100, PriceDeviation: 0, Delta: 100, Theta: 70, Liquidity: 50, DTE: 100, Composite: 70.5}, b)
}

func TestScore_StaysInRange(t *testing.T) {
	s := newTestScorer()
	best := signal(95, 2)
	best.PriceDeviationPct = 50
	best.Theta = domain.Float(-0.1)
	assert.Equal(t, 100.0, s.Score(best, domain.Float(0.5)))

	worst := domain.MispricingSignal{Expiry: "garbage", Delta: domain.Float(0.99), Theta: domain.Float(0)}
	score := s.Score(worst, domain.Float(50))
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
}

func TestScoreAndRank_TwoRowScenario(t *testing.T) {
	s := newTestScorer()
	b := signal(90, 1.1)
	a := signal(95, 1.6)
	input := []domain.MispricingSignal{b, a}

	ranked := s.ScoreAndRank(input, nil)
	require.Len(t, ranked, 2)
	assert.Equal(t, 95.0, ranked[0].Strike, "A supera a B")
	assert.Equal(t, 70.5, ranked[0].Score)
	assert.Equal(t, 52.5, ranked[1].Score)

	// la entrada no se modifica
	assert.Equal(t, 0.0, input[0].Score)
	assert.Equal(t, 0.0, input[1].Score)
}

func TestScoreAndRank_UsesChainSpreads(t *testing.T) {
	s := newTestScorer()
	a := signal(95, 1.6)
	chain := []domain.ChainRow{
		{Expiry: a.Expiry, Strike: 95, Side: domain.Put, Bid: 1.00, Ask: 1.01},
		{Expiry: a.Expiry, Strike: 95, Side: domain.Call, Bid: 1.00, Ask: 2.00},
	}
	ranked := s.ScoreAndRank([]domain.MispricingSignal{a}, chain)
	require.Len(t, ranked, 1)
	assert.Equal(t, 75.5, ranked[0].Score)
}

func TestScoreAndRank_TiesKeepInputOrder(t *testing.T) {
	s := newTestScorer()
	input := []domain.MispricingSignal{signal(90, 1.6), signal(91, 1.6), signal(92, 1.6)}
	ranked := s.ScoreAndRank(input, nil)
	assert.Equal(t, []float64{90, 91, 92}, []float64{ranked[0].Strike, ranked[1].Strike, ranked[2].Strike})
	assert.Nil(t, s.ScoreAndRank(nil, nil))
}

func TestTopOpportunities_FiltersBeforeTruncating(t *testing.T) {
	scored := []domain.MispricingSignal{
		{Strike: 1, Score: 90},
		{Strike: 2, Score: 35},
		{Strike: 3, Score: 80},
		{Strike: 4, Score: 60},
	}
	top := TopOpportunities(scored, 2, DefaultMinScore)
	require.Len(t, top, 2)
	assert.Equal(t, []float64{1, 3}, []float64{top[0].Strike, top[1].Strike})

	all := TopOpportunities(scored, 0, DefaultMinScore)
	assert.Len(t, all, 3)
	for _, sig := range all {
		assert.GreaterOrEqual(t, sig.Score, DefaultMinScore)
	}
	assert.Empty(t, TopOpportunities(scored, 5, 95))
}

func TestGenerateSummary(t *testing.T) {
	empty := GenerateSummary(nil)
	assert.Equal(t, 0, empty.Count)
	assert.Equal(t, 0.0, empty.AvgScore)
	assert.NotNil(t, empty.BySide)
	assert.Empty(t, empty.BySide)

	sigs := []domain.MispricingSignal{
		{Side: domain.Put, Score: 80, IVHVRatio: domain.Float(1.5)},
		{Side: domain.Put, Score: 60, IVHVRatio: domain.Float(1.1)},
		{Side: domain.Call, Score: 40},
	}
	s := GenerateSummary(sigs)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 60, s.AvgScore, 1e-9)
	assert.Equal(t, 80.0, s.MaxScore)
	assert.Equal(t, 40.0, s.MinScore)
	assert.InDelta(t, 1.3, s.AvgIVHVRatio, 1e-9)
	assert.Equal(t, map[domain.OptionSide]int{domain.Put: 2, domain.Call: 1}, s.BySide)
}

func TestProbabilityOfProfit(t *testing.T) {
	engine := pricing.NewEngine(pricing.NewFallbackProvider(), pricing.DefaultRiskFreeRate)

	assert.Equal(t, 1.0, ProbabilityOfProfit(engine, 105, 100, 0.3, 0, domain.Put))
	assert.Equal(t, 0.0, ProbabilityOfProfit(engine, 95, 100, 0.3, 0, domain.Put))
	assert.Equal(t, 1.0, ProbabilityOfProfit(engine, 95, 100, 0.3, 0, domain.Call))
	assert.Equal(t, 0.0, ProbabilityOfProfit(engine, 105, 100, 0.3, -2, domain.Call))

	in := engine.Inputs(100, 95, 30.0/365, 0.3, domain.Put)
	pop := ProbabilityOfProfit(engine, 100, 95, 0.3, 30, domain.Put)
	assert.InDelta(t, 1-math.Abs(engine.Delta(in)), pop, 1e-12)
	assert.Greater(t, pop, 0.5, "put OTM: más probable expirar sin valor")
}

func TestCalculateRiskReward(t *testing.T) {
	put := CalculateRiskReward(2, 100, 105, domain.Put)
	assert.Equal(t, 200.0, put.MaxProfit)
	assert.Equal(t, 9800.0, put.MaxLoss)
	assert.InDelta(t, 200.0/9800, put.Ratio, 1e-12)
	assert.Equal(t, 98.0, put.Breakeven)

	call := CalculateRiskReward(3, 110, 100, domain.Call)
	assert.Equal(t, 8700.0, call.MaxLoss)
	assert.Equal(t, 113.0, call.Breakeven)

	// strike muy por encima del doble del subyacente: pérdida estimada 0
	deep := CalculateRiskReward(1, 250, 100, domain.Call)
	assert.Equal(t, 0.0, deep.MaxLoss)
	assert.True(t, math.IsInf(deep.Ratio, 1))
}

func TestScoreDeltaTheta_ZeroIsAValueNotUnknown(t *testing.T) {
	optimal := domain.DefaultScoringWeights().OptimalDelta
	assert.Equal(t, 50.0, scoreDelta(nil, optimal))
	assert.Equal(t, 0.0, scoreDelta(domain.Float(0), optimal))
	assert.Equal(t, 50.0, scoreTheta(nil))
	assert.Equal(t, 20.0, scoreTheta(domain.Float(0)))
}
