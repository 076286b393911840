package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/premiumscan/internal/domain"
	"github.com/alejandrodnm/premiumscan/internal/markethours"
	"github.com/alejandrodnm/premiumscan/internal/mispricing"
	"github.com/alejandrodnm/premiumscan/internal/ports"
	"github.com/alejandrodnm/premiumscan/internal/pricing"
	"github.com/alejandrodnm/premiumscan/internal/scoring"
	"github.com/alejandrodnm/premiumscan/internal/volatility"
)

const (
	defaultRetries   = 2
	defaultRetryWait = 500 * time.Millisecond
)

// ErrMarketClosed lo devuelve RunOnce cuando MarketHoursOnly está activo y la sesión está cerrada.
var ErrMarketClosed = errors.New("market closed")

// Config contiene la configuración del scanner.
type Config struct {
	Symbols           []string
	ScanInterval      time.Duration
	Once              bool // un solo ciclo y salir
	TopN              int
	MinScore          float64
	Sides             []domain.OptionSide // vacío = ambos lados
	BarsDays          int
	HVMethod          volatility.Method
	HVWindow          int
	RequestsPerSecond float64
	Retries           int
	RetryWait         time.Duration
	MarketHoursOnly   bool
	MaxSpreadPct      float64 // spread máximo en % del mid; 0 = sin filtro de liquidez
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		ScanInterval:      5 * time.Minute,
		TopN:              scoring.DefaultTopN,
		MinScore:          scoring.DefaultMinScore,
		BarsDays:          365,
		HVMethod:          volatility.MethodStandard,
		HVWindow:          volatility.MediumWindow,
		RequestsPerSecond: 2,
		Retries:           defaultRetries,
		RetryWait:         defaultRetryWait,
	}
}

// Scanner es el orquestador del loop de escaneo: barras → HV → cadena → señales → score.
type Scanner struct {
	cfg      Config
	chains   ports.ChainProvider
	bars     ports.BarProvider
	storage  ports.Storage
	notifier ports.Notifier
	detector *mispricing.Detector
	scorer   *scoring.Scorer
	limiter  *rate.Limiter
	ivEngine *pricing.Engine // nil = sin backfill de IV
	now      func() time.Time
}

// Option configura un Scanner.
type Option func(*Scanner)

// WithClock fija el reloj usado para el estado del mercado y la fecha del scan.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// New crea un Scanner con todas las dependencias inyectadas. storage puede ser nil.
func New(
	cfg Config,
	chains ports.ChainProvider,
	bars ports.BarProvider,
	storage ports.Storage,
	notifier ports.Notifier,
	detector *mispricing.Detector,
	scorer *scoring.Scorer,
	opts ...Option,
) *Scanner {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.HVWindow <= 0 {
		cfg.HVWindow = volatility.MediumWindow
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}
	s := &Scanner{
		cfg:      cfg,
		chains:   chains,
		bars:     bars,
		storage:  storage,
		notifier: notifier,
		detector: detector,
		scorer:   scorer,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ejecuta el loop de escaneo hasta que el contexto se cancele.
// Si cfg.Once está activo, solo ejecuta un ciclo.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner starting",
		"symbols", len(s.cfg.Symbols),
		"interval", s.cfg.ScanInterval,
		"once", s.cfg.Once,
	)

	if err := s.runCycle(ctx); err != nil {
		slog.Error("scan cycle failed", "err", err)
		if s.cfg.Once {
			return err
		}
	}

	if s.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stopped")
			return nil
		case <-ticker.C:
			if err := s.runCycle(ctx); err != nil {
				slog.Error("scan cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un ciclo de escaneo y devuelve el scan, sin notificar ni persistir.
func (s *Scanner) RunOnce(ctx context.Context) (domain.Scan, error) {
	return s.cycle(ctx)
}

// runCycle ejecuta un ciclo completo y notifica/persiste los resultados.
func (s *Scanner) runCycle(ctx context.Context) error {
	scan, err := s.cycle(ctx)
	if errors.Is(err, ErrMarketClosed) {
		slog.Info("market closed, skipping cycle", "status", scan.Market)
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.notifier.Notify(ctx, scan); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if s.storage != nil {
		if err := s.storage.SaveScan(ctx, scan); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	slog.Info("scan cycle complete",
		"scan_id", scan.ID,
		"symbols", len(scan.Symbols),
		"opportunities", len(scan.Signals()),
		"best_score", scan.BestScore(),
		"duration", scan.Duration.Round(time.Millisecond),
	)
	return nil
}

// cycle escanea todos los símbolos. El fallo de un símbolo queda en su SymbolScan;
// solo se devuelve error si fallan todos.
func (s *Scanner) cycle(ctx context.Context) (domain.Scan, error) {
	began := time.Now()
	start := s.now()
	status := markethours.Check(start)
	slog.Debug("market status", "open", status.Open, "message", status.Message)

	scan := domain.Scan{
		ID:         uuid.NewString(),
		StartedAt:  start,
		MarketOpen: status.Open,
		Market:     status.Message,
	}
	if s.cfg.MarketHoursOnly && !status.Open {
		return scan, ErrMarketClosed
	}
	if len(s.cfg.Symbols) == 0 {
		return scan, fmt.Errorf("scanner.cycle: no symbols configured: %w", domain.ErrInvalidInput)
	}

	var failed []string
	var firstErr error
	for _, symbol := range s.cfg.Symbols {
		if err := ctx.Err(); err != nil {
			return scan, err
		}
		sym := s.scanSymbol(ctx, symbol)
		if sym.Err != nil {
			slog.Warn("symbol scan failed", "symbol", symbol, "err", sym.Err)
			failed = append(failed, symbol)
			if firstErr == nil {
				firstErr = sym.Err
			}
		}
		scan.Symbols = append(scan.Symbols, sym)
	}
	scan.Duration = time.Since(began)

	if len(failed) == len(s.cfg.Symbols) {
		return scan, fmt.Errorf("scanner.cycle: all symbols failed (%s): %w", strings.Join(failed, ","), firstErr)
	}
	return scan, nil
}

// scanSymbol hace barras → HV → cadena → FindOpportunities → ScoreAndRank → TopOpportunities.
func (s *Scanner) scanSymbol(ctx context.Context, symbol string) domain.SymbolScan {
	sym := domain.SymbolScan{Symbol: strings.ToUpper(symbol)}

	var bars domain.PriceSeries
	err := withRetry(ctx, s.limiter, s.cfg.Retries, s.cfg.RetryWait, "fetch bars", func() error {
		var err error
		bars, err = s.bars.FetchBars(ctx, sym.Symbol, s.cfg.BarsDays)
		return err
	})
	if err != nil {
		sym.Err = fmt.Errorf("scanner.scanSymbol: %s: fetch bars: %w", sym.Symbol, err)
		return sym
	}

	hv, method, ok := s.estimateHV(bars)
	if !ok {
		// Sin HV no hay ratio ni precio modelo: la cadena no se analiza.
		slog.Warn("not enough history for HV, skipping chain",
			"symbol", sym.Symbol,
			"bars", len(bars),
			"window", s.cfg.HVWindow,
		)
		return sym
	}
	sym.HV = domain.Float(hv)
	sym.HVMethod = string(method)

	var chain []domain.ChainRow
	err = withRetry(ctx, s.limiter, s.cfg.Retries, s.cfg.RetryWait, "fetch chain", func() error {
		var err error
		chain, err = s.chains.FetchChain(ctx, sym.Symbol)
		return err
	})
	if err != nil {
		sym.Err = fmt.Errorf("scanner.scanSymbol: %s: fetch chain: %w", sym.Symbol, err)
		return sym
	}
	sym.ChainRows = len(chain)
	if len(chain) > 0 {
		sym.UnderlyingPrice = chain[0].UnderlyingPrice
	}
	chain = s.prepareChain(sym.Symbol, chain)

	// Todos los candidatos filtrados pasan al scorer: el corte final es por score.
	candidates := s.detector.FindOpportunities(chain, hv, s.cfg.Sides, len(chain))
	ranked := s.scorer.ScoreAndRank(candidates, chain)
	sym.Signals = scoring.TopOpportunities(ranked, s.cfg.TopN, s.cfg.MinScore)

	slog.Debug("symbol scanned",
		"symbol", sym.Symbol,
		"chain_rows", sym.ChainRows,
		"candidates", len(candidates),
		"signals", len(sym.Signals),
	)
	return sym
}

// estimateHV calcula la HV anualizada con el método configurado; si sus columnas
// no están disponibles cae a close-to-close.
func (s *Scanner) estimateHV(bars domain.PriceSeries) (float64, volatility.Method, bool) {
	method := s.cfg.HVMethod
	if method == "" {
		method = volatility.MethodStandard
	}
	if hv, ok := volatility.Estimate(method, bars, s.cfg.HVWindow, true); ok {
		return hv, method, true
	}
	if method == volatility.MethodStandard {
		return 0, method, false
	}
	slog.Debug("hv method unavailable, falling back to standard", "method", method)
	hv, ok := volatility.Estimate(volatility.MethodStandard, bars, s.cfg.HVWindow, true)
	return hv, volatility.MethodStandard, ok
}
