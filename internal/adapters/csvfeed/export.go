package csvfeed

import (
	"context"
	"fmt"
	"os"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// Exporter implementa ports.Notifier volcando las señales de cada scan a un CSV.
// El archivo se reescribe en cada ciclo.
type Exporter struct {
	path string
}

// NewExporter crea un Exporter que escribe en path.
func NewExporter(path string) *Exporter {
	return &Exporter{path: path}
}

// Notify escribe las señales del scan, símbolo a símbolo.
func (e *Exporter) Notify(_ context.Context, scan domain.Scan) error {
	file, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("csvfeed.Export: create %q: %w", e.path, err)
	}
	if err := WriteSignals(file, scan.Signals()); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
