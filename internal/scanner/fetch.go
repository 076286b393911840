package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// withRetry ejecuta fn respetando el rate limiter, con backoff exponencial
// entre intentos. Un símbolo sin datos (fs.ErrNotExist, ErrUnknownSymbol) no se reintenta.
func withRetry(ctx context.Context, limiter *rate.Limiter, retries int, baseWait time.Duration, what string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, fs.ErrNotExist) || errors.Is(lastErr, domain.ErrUnknownSymbol) || ctx.Err() != nil {
			return lastErr
		}
		if attempt < retries {
			slog.Debug("provider call failed, retrying", "call", what, "attempt", attempt+1, "err", lastErr)
			sleep(ctx, attempt, baseWait)
		}
	}
	return fmt.Errorf("%s failed after %d retries: %w", what, retries, lastErr)
}

// sleep espera con backoff exponencial, respetando el contexto.
func sleep(ctx context.Context, attempt int, base time.Duration) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * base
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
