package mispricing

import (
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/premiumscan/internal/domain"
)

// analyzeConcurrent reparte las filas entre un worker pool.
// Cada resultado se escribe en su índice, así el orden de salida es el de entrada
// y los sorts posteriores son deterministas.
//
// Si workers <= 0 usa runtime.NumCPU().
func analyzeConcurrent(rows []domain.ChainRow, analyze func(domain.ChainRow) Analysis, workers int) []Analysis {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(rows) {
		workers = len(rows)
	}

	out := make([]Analysis, len(rows))
	workCh := make(chan int, len(rows))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				out[idx] = analyze(rows[idx])
			}
		}()
	}

	for i := range rows {
		workCh <- i
	}
	close(workCh)
	wg.Wait()

	slog.Debug("concurrent chain analysis complete",
		"rows", len(rows),
		"workers", workers,
	)
	return out
}
