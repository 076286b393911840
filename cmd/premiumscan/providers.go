package main

import (
	"fmt"

	"github.com/alejandrodnm/premiumscan/config"
	"github.com/alejandrodnm/premiumscan/internal/adapters/csvfeed"
	"github.com/alejandrodnm/premiumscan/internal/adapters/tradier"
	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/ports"
)

// newProviders construye el proveedor de cadenas y de barras según data.source.
func newProviders(c *config.Config) (ports.ChainProvider, ports.BarProvider, error) {
	switch c.Data.Source {
	case config.SourceCSV, "":
		feed := csvfeed.New(c.Data.ChainDir, c.Data.BarsDir)
		return feed, feed, nil
	case config.SourceTradier:
		burst := max(1, int(c.Tradier.RequestsPerSecond*5))
		client := tradier.NewClient(c.Tradier.BaseURL, c.Tradier.Token, c.Tradier.MaxExpirations,
			tradier.WithRateLimit(c.Tradier.RequestsPerSecond, burst),
		)
		return client, client, nil
	}
	return nil, nil, fmt.Errorf("data source %q: %w", c.Data.Source, domain.ErrInvalidInput)
}
