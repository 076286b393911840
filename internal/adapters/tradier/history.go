package tradier

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// calendarPerTradingDay sobredimensiona el rango pedido para cubrir fines de semana y festivos.
const calendarPerTradingDay = 1.5

// FetchBars implementa ports.BarProvider con barras diarias.
// Devuelve como mucho las últimas days barras, ascendente por fecha.
func (c *Client) FetchBars(ctx context.Context, symbol string, days int) (domain.PriceSeries, error) {
	symbol = strings.ToUpper(symbol)
	if days <= 0 {
		days = 365
	}
	end := c.now()
	start := end.AddDate(0, 0, -int(float64(days)*calendarPerTradingDay)-7)

	q := url.Values{
		"symbol":   {symbol},
		"interval": {"daily"},
		"start":    {start.Format(dateLayout)},
		"end":      {end.Format(dateLayout)},
	}
	var resp historyResponse
	if err := c.get(ctx, historyPath, q, &resp); err != nil {
		return nil, fmt.Errorf("tradier.FetchBars: GET history %s: %w", symbol, err)
	}
	if resp.History == nil {
		return nil, nil
	}

	bars := mapHistory(resp.History.Day)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}
