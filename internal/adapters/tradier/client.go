package tradier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.tradier.com/v1"

	// Market data: 120 req/min documentados → 60% → 72/min ≈ 1.2/s, con ráfaga corta.
	defaultRatePerSec = 1.2
	defaultBurst      = 10

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client es el HTTP client de Tradier market data con rate limiting y retries.
// Implementa ports.ChainProvider y ports.BarProvider.
type Client struct {
	http           *http.Client
	baseURL        string
	token          string
	limiter        *rate.Limiter
	maxExpirations int
	retryWait      time.Duration
	now            func() time.Time
}

// Option configura un Client.
type Option func(*Client)

// WithRateLimit sustituye el límite por defecto de requests por segundo.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSec), burst) }
}

// WithRetryWait fija la espera base del backoff.
func WithRetryWait(d time.Duration) Option {
	return func(c *Client) { c.retryWait = d }
}

// WithClock fija el reloj usado para calcular el rango de barras.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient crea un Client. Si baseURL está vacío usa producción.
// maxExpirations limita cuántas expiraciones (las más próximas) se piden por cadena; <= 0 = todas.
func NewClient(baseURL, token string, maxExpirations int, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		http:           &http.Client{Timeout: 10 * time.Second},
		baseURL:        baseURL,
		token:          token,
		limiter:        rate.NewLimiter(defaultRatePerSec, defaultBurst),
		maxExpirations: maxExpirations,
		retryWait:      baseRetryWait,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get hace un GET autenticado con rate limiting y retries.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
