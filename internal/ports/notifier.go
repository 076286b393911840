package ports

import (
	"context"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// Notifier presenta el resultado de un scan al usuario.
type Notifier interface {
	// Notify muestra las señales de cada símbolo ordenadas por score.
	// En la implementación de consola, imprime una tabla formateada.
	Notify(ctx context.Context, scan domain.Scan) error
}
