package csvfeed_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/premiumscan/internal/adapters/csvfeed"
	"github.com/alejandrodnm/premiumscan/internal/domain"
)

const chainCSV = `expiry,strike,side,bid,ask,last,iv,delta,gamma,theta,vega,underlying_price,volume,open_interest
20250221,180,PUT,2.10,2.20,2.15,0.28,-0.31,0.03,-0.05,0.2,185.5,1200,5400
20250221,190,C,1.50,1.60,,0.24,,,,,185.5,,
20250221,bad,PUT,1,1.1,,,,,,,185.5,,
2025-02-21,200,CALL,0.5,0.6,,,,,,,185.5,,
`

const barsCSV = `date,open,high,low,close,volume
2025-01-03,101,102,100,101.5,1000
2025-01-02,100,101,99,100.5,900
2025-01-06,102,103,101,102.5,1100
not-a-date,1,1,1,1,1
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestFeed_FetchChain(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AAPL.csv", chainCSV)
	feed := csvfeed.New(dir, dir)

	rows, err := feed.FetchChain(context.Background(), "aapl")
	require.NoError(t, err)
	require.Len(t, rows, 2, "strike y expiry inválidos se descartan")

	put := rows[0]
	assert.Equal(t, "AAPL", put.Symbol)
	assert.Equal(t, domain.Put, put.Side)
	assert.Equal(t, 180.0, put.Strike)
	require.NotNil(t, put.IV)
	assert.Equal(t, 0.28, *put.IV)
	require.NotNil(t, put.Delta)
	assert.Equal(t, -0.31, *put.Delta)
	assert.Equal(t, int64(5400), put.OpenInterest)

	call := rows[1]
	assert.Equal(t, domain.Call, call.Side)
	assert.Nil(t, call.Delta, "columna vacía = dato ausente")
	assert.Nil(t, call.Theta)
	assert.Equal(t, 0.0, call.Last)
	assert.InDelta(t, 1.55, call.MidPrice(), 1e-12)
}

func TestFeed_FetchChain_MissingFile(t *testing.T) {
	feed := csvfeed.New(t.TempDir(), t.TempDir())
	_, err := feed.FetchChain(context.Background(), "MSFT")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "MSFT")
}

func TestFeed_FetchBars_SortsAndTrims(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SPY.csv", barsCSV)
	feed := csvfeed.New(dir, dir)

	bars, err := feed.FetchBars(context.Background(), "SPY", 0)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, 102.5, bars[2].Close)
	assert.True(t, bars.HasOHLC())

	last2, err := feed.FetchBars(context.Background(), "SPY", 2)
	require.NoError(t, err)
	require.Len(t, last2, 2)
	assert.Equal(t, 101.5, last2[0].Close)
}

func TestFeed_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := csvfeed.New(".", ".").FetchBars(ctx, "SPY", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteSignals(t *testing.T) {
	var buf bytes.Buffer
	err := csvfeed.WriteSignals(&buf, []domain.MispricingSignal{{
		Symbol:    "AAPL",
		Expiry:    "20250221",
		Strike:    180,
		Side:      domain.Put,
		IVHVRatio: domain.Float(1.4),
		Score:     72.5,
		Signals:   []string{"a", "b"},
	}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "symbol,expiry,strike,side"))
	assert.Contains(t, lines[1], "AAPL,20250221,180,PUT")
	assert.Contains(t, lines[1], "1.4")
	assert.Contains(t, lines[1], "a; b")
}

func TestExporter_Notify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.csv")
	exp := csvfeed.NewExporter(path)

	scan := domain.Scan{Symbols: []domain.SymbolScan{
		{Symbol: "AAPL", Signals: []domain.MispricingSignal{{Symbol: "AAPL", Expiry: "20250221", Strike: 180, Side: domain.Put}}},
		{Symbol: "MSFT", Signals: []domain.MispricingSignal{{Symbol: "MSFT", Expiry: "20250221", Strike: 400, Side: domain.Call}}},
	}}
	require.NoError(t, exp.Notify(context.Background(), scan))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "AAPL,"))
	assert.True(t, strings.HasPrefix(lines[2], "MSFT,"))

	// cada ciclo reescribe el archivo
	require.NoError(t, exp.Notify(context.Background(), domain.Scan{Symbols: scan.Symbols[:1]}))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2)
}

func TestExporter_BadPath(t *testing.T) {
	exp := csvfeed.NewExporter(filepath.Join(t.TempDir(), "missing", "signals.csv"))
	assert.Error(t, exp.Notify(context.Background(), domain.Scan{}))
}
