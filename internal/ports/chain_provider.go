package ports

import (
	"context"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// ChainProvider obtiene la cadena de opciones de un subyacente.
type ChainProvider interface {
	// FetchChain devuelve todas las filas de la cadena (todas las expiraciones y lados).
	// Cada fila trae el precio del subyacente en UnderlyingPrice.
	FetchChain(ctx context.Context, symbol string) ([]domain.ChainRow, error)
}
