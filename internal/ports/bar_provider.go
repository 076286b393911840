package ports

import (
	"context"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// BarProvider obtiene barras diarias OHLCV del subyacente.
type BarProvider interface {
	// FetchBars devuelve como mucho las últimas days barras, ordenadas por fecha ascendente.
	FetchBars(ctx context.Context, symbol string, days int) (domain.PriceSeries, error)
}
