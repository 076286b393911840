package notify

import (
	"context"
	"errors"

	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/ports"
)

// Multi reparte cada scan entre varios notificadores.
type Multi []ports.Notifier

// Notify llama a todos los notificadores aunque alguno falle y devuelve los errores unidos.
func (m Multi) Notify(ctx context.Context, scan domain.Scan) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, scan); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
