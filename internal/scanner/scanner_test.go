package scanner_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/mispricing"
	"github.com/alejandrodnm/premiumscan/internal/pricing"
	"github.com/alejandrodnm/premiumscan/internal/scanner"
	"github.com/alejandrodnm/premiumscan/internal/scoring"
	"github.com/alejandrodnm/premiumscan/internal/volatility"
)

// lunes 10:00 ET, mercado abierto
var testNow = time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)

// --- mocks ---

type mockChainProvider struct {
	mu     sync.Mutex
	chains map[string][]domain.ChainRow
	errs   []error // errores a devolver en las primeras llamadas
	calls  int
}

func (m *mockChainProvider) FetchChain(_ context.Context, symbol string) ([]domain.ChainRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	rows, ok := m.chains[symbol]
	if !ok {
		return nil, fmt.Errorf("open %s.csv: %w", symbol, fs.ErrNotExist)
	}
	return rows, nil
}

type mockBarProvider struct {
	bars map[string]domain.PriceSeries
	err  error
}

func (m *mockBarProvider) FetchBars(_ context.Context, symbol string, days int) (domain.PriceSeries, error) {
	if m.err != nil {
		return nil, m.err
	}
	bars, ok := m.bars[symbol]
	if !ok {
		return nil, fmt.Errorf("open %s.csv: %w", symbol, fs.ErrNotExist)
	}
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

type mockNotifier struct {
	notified []domain.Scan
	err      error
}

func (m *mockNotifier) Notify(_ context.Context, scan domain.Scan) error {
	m.notified = append(m.notified, scan)
	return m.err
}

type mockStorage struct {
	mu    sync.Mutex
	saved []domain.Scan
	err   error
}

func (m *mockStorage) SaveScan(_ context.Context, scan domain.Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, scan)
	return m.err
}

func (m *mockStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func (m *mockStorage) GetHistory(_ context.Context, _, _ time.Time) ([]domain.ScanResult, error) {
	return nil, nil
}

func (m *mockStorage) Close() error { return nil }

// --- helpers ---

// zigzagBars alterna cierres 100/101: HV standard a 21 días ≈ 16%.
func zigzagBars(n int) domain.PriceSeries {
	bars := make(domain.PriceSeries, n)
	start := testNow.AddDate(0, 0, -n)
	for i := range bars {
		c := 100.0
		if i%2 == 1 {
			c = 101
		}
		bars[i] = domain.PriceBar{Date: start.AddDate(0, 0, i), Close: c}
	}
	return bars
}

func expiryIn(days int) string {
	return domain.FormatExpiry(testNow.AddDate(0, 0, days))
}

func putRow(symbol string, strike, bid, ask, iv, delta float64, dte int) domain.ChainRow {
	return domain.ChainRow{
		Symbol:          symbol,
		Expiry:          expiryIn(dte),
		Strike:          strike,
		Side:            domain.Put,
		Bid:             bid,
		Ask:             ask,
		IV:              domain.Float(iv),
		Delta:           domain.Float(delta),
		UnderlyingPrice: 100,
	}
}

// testChain: dos puts que pasan filtros y una fuera de rango de DTE.
func testChain(symbol string) []domain.ChainRow {
	return []domain.ChainRow{
		putRow(symbol, 95, 0.95, 1.05, 0.30, -0.25, 30),
		putRow(symbol, 97, 1.40, 1.50, 0.24, -0.33, 21),
		putRow(symbol, 90, 0.60, 0.70, 0.35, -0.15, 90),
	}
}

type fixture struct {
	chains   *mockChainProvider
	bars     *mockBarProvider
	notifier *mockNotifier
	storage  *mockStorage
}

func newFixture(symbols ...string) *fixture {
	f := &fixture{
		chains:   &mockChainProvider{chains: map[string][]domain.ChainRow{}},
		bars:     &mockBarProvider{bars: map[string]domain.PriceSeries{}},
		notifier: &mockNotifier{},
		storage:  &mockStorage{},
	}
	for _, s := range symbols {
		f.chains.chains[s] = testChain(s)
		f.bars.bars[s] = zigzagBars(60)
	}
	return f
}

func testConfig(symbols ...string) scanner.Config {
	cfg := scanner.DefaultConfig()
	cfg.Symbols = symbols
	cfg.RequestsPerSecond = 1000
	cfg.RetryWait = time.Millisecond
	return cfg
}

func testEngine() *pricing.Engine {
	return pricing.NewEngine(pricing.NewFallbackProvider(), pricing.DefaultRiskFreeRate)
}

func (f *fixture) scanner(cfg scanner.Config, now time.Time, opts ...scanner.Option) *scanner.Scanner {
	clock := func() time.Time { return now }
	detector := mispricing.NewDetector(testEngine(), domain.DefaultThresholdRules(), mispricing.WithClock(clock))
	scorer := scoring.NewScorer(domain.DefaultScoringWeights(), scoring.WithClock(clock))
	opts = append([]scanner.Option{scanner.WithClock(clock)}, opts...)
	return scanner.New(cfg, f.chains, f.bars, f.storage, f.notifier, detector, scorer, opts...)
}

// --- tests ---

func TestRunOnce_ProducesRankedSignals(t *testing.T) {
	f := newFixture("AAPL")
	s := f.scanner(testConfig("AAPL"), testNow)

	scan, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, scan.ID)
	assert.Equal(t, testNow, scan.StartedAt)
	assert.True(t, scan.MarketOpen)
	require.Len(t, scan.Symbols, 1)

	sym := scan.Symbols[0]
	require.NoError(t, sym.Err)
	assert.Equal(t, "AAPL", sym.Symbol)
	assert.Equal(t, 100.0, sym.UnderlyingPrice)
	assert.Equal(t, 3, sym.ChainRows)
	assert.Equal(t, string(volatility.MethodStandard), sym.HVMethod)
	require.NotNil(t, sym.HV)
	assert.InDelta(t, 0.16, *sym.HV, 0.01)

	require.Len(t, sym.Signals, 2, "the 90-DTE put is filtered out")
	for i, sig := range sym.Signals {
		assert.GreaterOrEqual(t, sig.Score, scoring.DefaultMinScore)
		assert.True(t, sig.IsOverpriced)
		if i > 0 {
			assert.GreaterOrEqual(t, sym.Signals[i-1].Score, sig.Score)
		}
	}

	// RunOnce no notifica ni persiste
	assert.Empty(t, f.notifier.notified)
	assert.Empty(t, f.storage.saved)
}

func TestRun_OnceNotifiesAndPersists(t *testing.T) {
	f := newFixture("AAPL", "MSFT")
	cfg := testConfig("AAPL", "MSFT")
	cfg.Once = true

	require.NoError(t, f.scanner(cfg, testNow).Run(context.Background()))

	require.Len(t, f.notifier.notified, 1)
	require.Len(t, f.storage.saved, 1)
	assert.Equal(t, f.notifier.notified[0].ID, f.storage.saved[0].ID)
	assert.Len(t, f.storage.saved[0].Symbols, 2)
	assert.Len(t, f.storage.saved[0].Signals(), 4)
}

func TestRun_NotifierErrorStillPersists(t *testing.T) {
	f := newFixture("AAPL")
	f.notifier.err = errors.New("stdout closed")
	cfg := testConfig("AAPL")
	cfg.Once = true

	require.NoError(t, f.scanner(cfg, testNow).Run(context.Background()))
	assert.Len(t, f.storage.saved, 1)
}

func TestRun_NilStorage(t *testing.T) {
	f := newFixture("AAPL")
	cfg := testConfig("AAPL")
	cfg.Once = true

	clock := func() time.Time { return testNow }
	engine := pricing.NewEngine(pricing.NewFallbackProvider(), pricing.DefaultRiskFreeRate)
	s := scanner.New(cfg, f.chains, f.bars, nil, f.notifier,
		mispricing.NewDetector(engine, domain.DefaultThresholdRules(), mispricing.WithClock(clock)),
		scoring.NewScorer(domain.DefaultScoringWeights(), scoring.WithClock(clock)),
		scanner.WithClock(clock),
	)
	require.NoError(t, s.Run(context.Background()))
	assert.Len(t, f.notifier.notified, 1)
}

func TestRunOnce_SymbolFailureDoesNotAbort(t *testing.T) {
	f := newFixture("AAPL")
	f.bars.bars["TSLA"] = zigzagBars(60) // sin cadena

	scan, err := f.scanner(testConfig("AAPL", "TSLA"), testNow).RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, scan.Symbols, 2)

	assert.NoError(t, scan.Symbols[0].Err)
	assert.NotEmpty(t, scan.Symbols[0].Signals)

	assert.ErrorIs(t, scan.Symbols[1].Err, fs.ErrNotExist)
	assert.Empty(t, scan.Symbols[1].Signals)
	assert.Equal(t, 2, f.chains.calls, "missing data is not retried")
}

func TestRunOnce_AllSymbolsFail(t *testing.T) {
	f := newFixture()
	f.bars.err = errors.New("feed down")

	_, err := f.scanner(testConfig("AAPL", "MSFT"), testNow).RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all symbols failed")
}

func TestRun_OnceReturnsCycleError(t *testing.T) {
	f := newFixture()
	f.bars.err = errors.New("feed down")
	cfg := testConfig("AAPL")
	cfg.Once = true

	assert.Error(t, f.scanner(cfg, testNow).Run(context.Background()))
	assert.Empty(t, f.notifier.notified)
}

func TestRunOnce_RetriesTransientErrors(t *testing.T) {
	f := newFixture("AAPL")
	f.chains.errs = []error{errors.New("timeout"), errors.New("timeout")}

	scan, err := f.scanner(testConfig("AAPL"), testNow).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, f.chains.calls)
	assert.NoError(t, scan.Symbols[0].Err)
	assert.NotEmpty(t, scan.Symbols[0].Signals)
}

func TestRunOnce_RetriesExhausted(t *testing.T) {
	f := newFixture("AAPL")
	f.chains.errs = []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}

	_, err := f.scanner(testConfig("AAPL"), testNow).RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch chain failed after 2 retries")
}

func TestRunOnce_MarketClosed(t *testing.T) {
	f := newFixture("AAPL")
	cfg := testConfig("AAPL")
	cfg.MarketHoursOnly = true
	saturday := time.Date(2025, 1, 4, 15, 0, 0, 0, time.UTC)

	scan, err := f.scanner(cfg, saturday).RunOnce(context.Background())
	assert.ErrorIs(t, err, scanner.ErrMarketClosed)
	assert.False(t, scan.MarketOpen)
	assert.Empty(t, scan.Symbols)
	assert.Zero(t, f.chains.calls)

	cfg.Once = true
	require.NoError(t, f.scanner(cfg, saturday).Run(context.Background()))
	assert.Empty(t, f.notifier.notified, "closed market skips the cycle")
}

func TestRunOnce_MarketClosedIgnoredByDefault(t *testing.T) {
	f := newFixture("AAPL")
	saturday := time.Date(2025, 1, 4, 15, 0, 0, 0, time.UTC)

	scan, err := f.scanner(testConfig("AAPL"), saturday).RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, scan.MarketOpen)
	assert.Len(t, scan.Symbols, 1)
}

func TestRunOnce_NoSymbols(t *testing.T) {
	f := newFixture()
	_, err := f.scanner(testConfig(), testNow).RunOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunOnce_InsufficientHistory(t *testing.T) {
	f := newFixture("AAPL")
	f.bars.bars["AAPL"] = zigzagBars(5)
	// spread estrecho y delta óptima: sin HV puntuaría por encima del mínimo
	f.chains.chains["AAPL"] = []domain.ChainRow{putRow("AAPL", 95, 0.99, 1.01, 0.30, -0.25, 30)}

	scan, err := f.scanner(testConfig("AAPL"), testNow).RunOnce(context.Background())
	require.NoError(t, err)

	sym := scan.Symbols[0]
	assert.NoError(t, sym.Err)
	assert.Nil(t, sym.HV)
	assert.Empty(t, sym.HVMethod)
	assert.Empty(t, sym.Signals)
	assert.Equal(t, 0, f.chains.calls, "chain is not fetched without HV")
}

func TestRunOnce_RangeMethodFallsBackToStandard(t *testing.T) {
	f := newFixture("AAPL") // barras solo con cierres
	cfg := testConfig("AAPL")
	cfg.HVMethod = volatility.MethodParkinson

	scan, err := f.scanner(cfg, testNow).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, string(volatility.MethodStandard), scan.Symbols[0].HVMethod)
	assert.NotNil(t, scan.Symbols[0].HV)
}

func TestRunOnce_SideFilter(t *testing.T) {
	f := newFixture("AAPL")
	cfg := testConfig("AAPL")
	cfg.Sides = []domain.OptionSide{domain.Call}

	scan, err := f.scanner(cfg, testNow).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, scan.Symbols[0].Signals)
}

func TestRunOnce_TopNAndMinScore(t *testing.T) {
	f := newFixture("AAPL")
	cfg := testConfig("AAPL")
	cfg.TopN = 1

	scan, err := f.scanner(cfg, testNow).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, scan.Symbols[0].Signals, 1)

	cfg.TopN = 10
	cfg.MinScore = 101
	scan, err = f.scanner(cfg, testNow).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, scan.Symbols[0].Signals)
}

func TestRunOnce_MaxSpreadDropsIlliquidRows(t *testing.T) {
	f := newFixture("AAPL")
	cfg := testConfig("AAPL")
	cfg.MaxSpreadPct = 8 // el put 95 tiene un spread del 10%

	scan, err := f.scanner(cfg, testNow).RunOnce(context.Background())
	require.NoError(t, err)

	sym := scan.Symbols[0]
	assert.Equal(t, 3, sym.ChainRows)
	require.Len(t, sym.Signals, 1)
	assert.Equal(t, 97.0, sym.Signals[0].Strike)
}

func TestRunOnce_BackfillsMissingIV(t *testing.T) {
	engine := testEngine()
	price := engine.Price(engine.Inputs(100, 95, 30.0/365, 0.30, domain.Put))
	row := putRow("AAPL", 95, price-0.01, price+0.01, 0, -0.25, 30)
	row.IV = nil

	f := newFixture("AAPL")
	f.chains.chains["AAPL"] = []domain.ChainRow{row}

	scan, err := f.scanner(testConfig("AAPL"), testNow).RunOnce(context.Background())
	require.NoError(t, err)
	for _, sig := range scan.Symbols[0].Signals {
		assert.Nil(t, sig.IVHVRatio, "no IV without backfill")
	}

	scan, err = f.scanner(testConfig("AAPL"), testNow, scanner.WithIVBackfill(engine)).RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, scan.Symbols[0].Signals, 1)

	sig := scan.Symbols[0].Signals[0]
	require.NotNil(t, sig.IV)
	assert.InDelta(t, 0.30, *sig.IV, 1e-3)
	require.NotNil(t, sig.IVHVRatio)
	assert.Greater(t, *sig.IVHVRatio, 1.5)

	// la cadena del proveedor no se modifica
	assert.Nil(t, f.chains.chains["AAPL"][0].IV)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newFixture("AAPL")
	cfg := testConfig("AAPL")
	cfg.ScanInterval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.scanner(cfg, testNow).Run(ctx) }()

	require.Eventually(t, func() bool { return f.storage.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop")
	}
}
