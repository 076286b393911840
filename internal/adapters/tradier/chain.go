package tradier

// chain.go: la cadena se pide por expiración. Cada expiración va en su goroutine;
// el rate limiter de doWithRetry marca el ritmo, sin semáforo explícito.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

const (
	quotesPath      = "/markets/quotes"
	expirationsPath = "/markets/options/expirations"
	chainsPath      = "/markets/options/chains"
	historyPath     = "/markets/history"
)

// FetchChain implementa ports.ChainProvider: cotización del subyacente, expiraciones
// (las maxExpirations más próximas) y la cadena de cada una con greeks.
func (c *Client) FetchChain(ctx context.Context, symbol string) ([]domain.ChainRow, error) {
	symbol = strings.ToUpper(symbol)

	underlying, err := c.fetchUnderlying(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("tradier.FetchChain: %w", err)
	}

	expirations, err := c.fetchExpirations(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("tradier.FetchChain: %w", err)
	}
	if c.maxExpirations > 0 && len(expirations) > c.maxExpirations {
		expirations = expirations[:c.maxExpirations]
	}

	type expiryResult struct {
		rows    []domain.ChainRow
		skipped int
		err     error
	}

	// Resultados por índice: la cadena sale en orden de expiración.
	results := make([]expiryResult, len(expirations))
	var wg sync.WaitGroup
	for i, exp := range expirations {
		i, exp := i, exp
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw, err := c.fetchChainExpiry(ctx, symbol, exp)
			if err != nil {
				results[i].err = err
				return
			}
			results[i].rows, results[i].skipped = mapOptions(raw, symbol, underlying)
		}()
	}
	wg.Wait()

	var rows []domain.ChainRow
	skipped := 0
	for i, r := range results {
		if r.err != nil {
			return nil, fmt.Errorf("tradier.FetchChain: %s %s: %w", symbol, expirations[i], r.err)
		}
		rows = append(rows, r.rows...)
		skipped += r.skipped
	}

	slog.Debug("option chain fetched",
		"symbol", symbol,
		"underlying", underlying,
		"expirations", len(expirations),
		"rows", len(rows),
		"skipped", skipped,
	)
	return rows, nil
}

// fetchUnderlying devuelve el precio actual del subyacente.
func (c *Client) fetchUnderlying(ctx context.Context, symbol string) (float64, error) {
	var resp quotesResponse
	if err := c.get(ctx, quotesPath, url.Values{"symbols": {symbol}}, &resp); err != nil {
		return 0, fmt.Errorf("GET quotes %s: %w", symbol, err)
	}
	if resp.Quotes == nil || len(resp.Quotes.Quote) == 0 {
		return 0, fmt.Errorf("quote %s: %w", symbol, domain.ErrUnknownSymbol)
	}
	price := underlyingPrice(resp.Quotes.Quote[0])
	if price <= 0 {
		return 0, fmt.Errorf("quote %s: no price: %w", symbol, domain.ErrInsufficientData)
	}
	return price, nil
}

// fetchExpirations devuelve las expiraciones "YYYY-MM-DD" ordenadas ascendente.
func (c *Client) fetchExpirations(ctx context.Context, symbol string) ([]string, error) {
	var resp expirationsResponse
	if err := c.get(ctx, expirationsPath, url.Values{"symbol": {symbol}}, &resp); err != nil {
		return nil, fmt.Errorf("GET expirations %s: %w", symbol, err)
	}
	if resp.Expirations == nil {
		return nil, nil
	}
	dates := append([]string(nil), resp.Expirations.Date...)
	sort.Strings(dates)
	return dates, nil
}

// fetchChainExpiry pide la cadena de una expiración con greeks.
func (c *Client) fetchChainExpiry(ctx context.Context, symbol, expiration string) ([]option, error) {
	q := url.Values{
		"symbol":     {symbol},
		"expiration": {expiration},
		"greeks":     {"true"},
	}
	var resp chainResponse
	if err := c.get(ctx, chainsPath, q, &resp); err != nil {
		return nil, fmt.Errorf("GET chains: %w", err)
	}
	if resp.Options == nil {
		return nil, nil
	}
	return resp.Options.Option, nil
}
