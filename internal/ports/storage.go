package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// Storage persiste los resultados de cada ciclo de escaneo.
type Storage interface {
	// SaveScan persiste el resumen del scan y sus señales.
	SaveScan(ctx context.Context, scan domain.Scan) error

	// GetHistory devuelve las señales registradas en el rango de tiempo dado, mejor score primero.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.ScanResult, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
