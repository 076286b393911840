// Package csvfeed implementa ChainProvider y BarProvider sobre ficheros CSV:
// <chain_dir>/<SYMBOL>.csv para la cadena y <bars_dir>/<SYMBOL>.csv para las barras.
package csvfeed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// Feed lee cadenas y barras desde disco.
type Feed struct {
	chainDir string
	barsDir  string
}

// New crea un Feed sobre los directorios dados.
func New(chainDir, barsDir string) *Feed {
	return &Feed{chainDir: chainDir, barsDir: barsDir}
}

// FetchChain implementa ports.ChainProvider.
// Las filas inválidas se descartan con un log; el resto de la cadena se devuelve.
func (f *Feed) FetchChain(ctx context.Context, symbol string) ([]domain.ChainRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var dtos []chainRowDTO
	if err := unmarshalFile(f.path(f.chainDir, symbol), &dtos); err != nil {
		return nil, fmt.Errorf("csvfeed.FetchChain: %s: %w", symbol, err)
	}

	rows := make([]domain.ChainRow, 0, len(dtos))
	for i, dto := range dtos {
		row, err := dto.toModel(strings.ToUpper(symbol))
		if err != nil {
			slog.Debug("skipping chain row", "symbol", symbol, "line", i+2, "err", err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FetchBars implementa ports.BarProvider. Ordena por fecha y devuelve las últimas days barras.
func (f *Feed) FetchBars(ctx context.Context, symbol string, days int) (domain.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var dtos []barDTO
	if err := unmarshalFile(f.path(f.barsDir, symbol), &dtos); err != nil {
		return nil, fmt.Errorf("csvfeed.FetchBars: %s: %w", symbol, err)
	}

	bars := make(domain.PriceSeries, 0, len(dtos))
	for i, dto := range dtos {
		bar, err := dto.toModel()
		if err != nil {
			slog.Debug("skipping bar", "symbol", symbol, "line", i+2, "err", err)
			continue
		}
		bars = append(bars, bar)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// WriteSignals exporta señales a CSV (una fila por señal, con cabecera).
func WriteSignals(w io.Writer, signals []domain.MispricingSignal) error {
	dtos := make([]signalDTO, len(signals))
	for i, s := range signals {
		dtos[i] = newSignalDTO(s)
	}
	if err := gocsv.Marshal(&dtos, w); err != nil {
		return fmt.Errorf("csvfeed.WriteSignals: %w", err)
	}
	return nil
}

func (f *Feed) path(dir, symbol string) string {
	return filepath.Join(dir, strings.ToUpper(symbol)+".csv")
}

func unmarshalFile(path string, out any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer file.Close()

	if err := gocsv.UnmarshalFile(file, out); err != nil {
		return fmt.Errorf("parse %q: %w", path, err)
	}
	return nil
}
